// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

// PipelineTask asks the background consumer to run the strategy and
// reply-options stages for a target after a new analysis was stored.
type PipelineTask struct {
	TargetID   uint `json:"target_id"`
	SnippetID  uint `json:"snippet_id"`
	AnalysisID uint `json:"analysis_id"`
}
