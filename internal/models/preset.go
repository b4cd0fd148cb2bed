package models

import (
	"time"

	"gorm.io/datatypes"
)

// ThresholdPreset is a named set of assessment thresholds plus the
// left/right channel partition they were tuned against.
type ThresholdPreset struct {
	Name        string `gorm:"column:name;type:text;primaryKey" bson:"name" json:"name"`
	Description string `gorm:"column:description;type:text" bson:"description,omitempty" json:"description,omitempty"`

	DARThreshold      float64 `gorm:"column:dar_threshold" bson:"dar_threshold" json:"dar_threshold"`
	DBRThreshold      float64 `gorm:"column:dbr_threshold" bson:"dbr_threshold" json:"dbr_threshold"`
	RBPBetaThreshold  float64 `gorm:"column:rbp_beta_threshold" bson:"rbp_beta_threshold" json:"rbp_beta_threshold"`
	RBPAlphaThreshold float64 `gorm:"column:rbp_alpha_threshold" bson:"rbp_alpha_threshold" json:"rbp_alpha_threshold"`
	RDAlphaThreshold  float64 `gorm:"column:rd_alpha_threshold" bson:"rd_alpha_threshold" json:"rd_alpha_threshold"`
	RDBetaThreshold   float64 `gorm:"column:rd_beta_threshold" bson:"rd_beta_threshold" json:"rd_beta_threshold"`
	HIAlphaThreshold  float64 `gorm:"column:hi_alpha_threshold" bson:"hi_alpha_threshold" json:"hi_alpha_threshold"`
	HIBetaThreshold   float64 `gorm:"column:hi_beta_threshold" bson:"hi_beta_threshold" json:"hi_beta_threshold"`
	Quorum            int     `gorm:"column:quorum" bson:"quorum" json:"quorum"`

	LeftChannels  datatypes.JSONSlice[string] `gorm:"column:left_channels;type:jsonb" bson:"left_channels" json:"left_channels"`
	RightChannels datatypes.JSONSlice[string] `gorm:"column:right_channels;type:jsonb" bson:"right_channels" json:"right_channels"`

	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" bson:"updated_at" json:"updated_at"`
}

func (ThresholdPreset) TableName() string { return "threshold_presets" }
