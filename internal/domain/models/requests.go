package models

// Requests for the analytics HTTP endpoints. Defined in domain for
// consistency and reuse.

type PairRequest struct {
	X      string `query:"x" json:"x" validate:"required"`
	Y      string `query:"y" json:"y" validate:"required"`
	TF     string `query:"tf" json:"tf" default:"1m" validate:"oneof=1s 1m 5m"`
	Window int    `query:"window" json:"window" default:"200" validate:"gte=30,lte=5000"`
}

type ADFRequest struct {
	X      string `query:"x" json:"x" validate:"required"`
	Y      string `query:"y" json:"y" validate:"required"`
	TF     string `query:"tf" json:"tf" default:"1m" validate:"oneof=1s 1m 5m"`
	Window int    `query:"window" json:"window" default:"200" validate:"gte=30,lte=5000"`
	Lag    int    `query:"lag" json:"lag" default:"1" validate:"gte=0,lte=20"`
}

type BarsRequest struct {
	Pair  string `query:"pair" json:"pair" validate:"required"`
	TF    string `query:"tf" json:"tf" default:"1m" validate:"oneof=1s 1m 5m"`
	From  string `query:"from" json:"from"`
	To    string `query:"to" json:"to"`
	Limit int    `query:"limit" json:"limit" default:"500" validate:"gte=1,lte=10000"`
}
