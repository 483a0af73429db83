// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// Target 是被辅导关系中的对方。
// 创建后不再修改，所有下游记录通过 target_id 引用它。
type Target struct {
	ID                     uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name                   string    `gorm:"type:varchar(100);not null" json:"name"`
	Gender                 string    `gorm:"type:varchar(32)" json:"gender"`
	Personality            string    `gorm:"type:text" json:"personality"`
	RelationshipContext    string    `gorm:"type:text" json:"relationship_context"`
	RelationshipPerception string    `gorm:"type:text" json:"relationship_perception"`
	RelationshipGoals      string    `gorm:"type:text" json:"relationship_goals"`
	RelationshipGoalsLong  string    `gorm:"type:text" json:"relationship_goals_long"`
	Language               string    `gorm:"type:varchar(50);not null" json:"language"`
	CreatedAt              time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Target) TableName() string {
	return "targets"
}
