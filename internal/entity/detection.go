package entity

// Detection is one predicted object instance. Box holds pixel coordinates
// in x1,y1,x2,y2 order with x1<x2 and y1<y2.
type Detection struct {
	Box   [4]int  `json:"box"`
	Label string  `json:"label"`
	Score float64 `json:"score"`
}
