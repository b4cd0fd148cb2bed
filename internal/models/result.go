package models

import (
	"math"
	"strconv"
)

const (
	FlagNormal   = "Normal"
	FlagAbnormal = "Abnormal"
)

// Metric is a scalar rounded to 2 decimals on the wire. JSON has no NaN or
// Inf, so non-finite values are written as null.
type Metric float64

func (m Metric) MarshalJSON() ([]byte, error) {
	v := float64(m)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, Round2(v), 'f', -1, 64), nil
}

// Round2 rounds half away from zero to 2 decimal places.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return math.Round(v*100) / 100
}

// AssessmentResult is emitted once per completed window.
type AssessmentResult struct {
	DAR      Metric `json:"DAR"`
	DBR      Metric `json:"DBR"`
	RBPAlpha Metric `json:"RBP_Alpha"`
	RBPBeta  Metric `json:"RBP_Beta"`
	RDAlpha  Metric `json:"RD_Alpha"`
	RDBeta   Metric `json:"RD_Beta"`
	HIAlpha  Metric `json:"HI_Alpha"`
	HIBeta   Metric `json:"HI_Beta"`

	Stroke int `json:"stroke"` // 0|1

	RatioFlag string `json:"ratio_flag"`
	RBPBFlag  string `json:"rbpb_flag"`
	RBPAFlag  string `json:"rbpa_flag"`
	RDAFlag   string `json:"rda_flag"`
	RDBFlag   string `json:"rdb_flag"`
	HIAFlag   string `json:"hia_flag"`
	HIBFlag   string `json:"hib_flag"`
}

// ErrorFrame is written to the websocket when one packet or window fails.
type ErrorFrame struct {
	Type    string `json:"type"` // always "error"
	Code    string `json:"code"`
	Message string `json:"message"`
}
