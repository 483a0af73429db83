package llm

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// ResponseFormat 描述一次结构化补全所要求的输出 schema。
type ResponseFormat struct {
	Name        string
	Description string
	Schema      map[string]any
}

// FormatFor 从 Go 结构体生成符合 OpenAI strict 模式的 ResponseFormat。
func FormatFor[T any](name, description string) ResponseFormat {
	return ResponseFormat{
		Name:        name,
		Description: description,
		Schema:      GenerateSchema[T](),
	}
}

// GenerateSchema 反射生成 T 的 JSON Schema（不含 $ref，禁止额外字段，所有字段必填）。
func GenerateSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schema := reflector.Reflect(v)
	schemaObj, err := schemaToMap(schema)
	if err != nil {
		panic(err)
	}
	ensureOpenAICompliance(schemaObj)
	return schemaObj
}

func schemaToMap(schema *jsonschema.Schema) (map[string]any, error) {
	b, err := schema.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

const (
	propertiesKey           = "properties"
	additionalPropertiesKey = "additionalProperties"
	typeKey                 = "type"
	requiredKey             = "required"
	itemsKey                = "items"
)

// ensureOpenAICompliance 递归地把每个 object 标记为 additionalProperties=false 且全部字段必填。
func ensureOpenAICompliance(schema map[string]any) {
	if schemaType, ok := schema[typeKey].(string); ok && schemaType == "object" {
		schema[additionalPropertiesKey] = false

		if properties, ok := schema[propertiesKey].(map[string]any); ok {
			required := make([]string, 0, len(properties))
			for propName := range properties {
				required = append(required, propName)
			}
			if len(required) > 0 {
				schema[requiredKey] = required
			}
		}
	}

	if properties, ok := schema[propertiesKey].(map[string]any); ok {
		for _, prop := range properties {
			if propMap, ok := prop.(map[string]any); ok {
				ensureOpenAICompliance(propMap)
			}
		}
	}

	if items, ok := schema[itemsKey].(map[string]any); ok {
		ensureOpenAICompliance(items)
	}
}
