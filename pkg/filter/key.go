// Package filter defines the immutable filter key that scopes a postings
// query. Two cached result sets are interchangeable only when their keys
// compare equal field for field.
package filter

import (
	"net/url"
	"strconv"
)

// DefaultMaxAgeDays is the default posting age cutoff in days.
const DefaultMaxAgeDays = 14

// Key captures the active query filters. It is a comparable value type:
// construct a fresh one at each fetch decision point, never mutate one.
type Key struct {
	ShowGoods        bool    `json:"show_goods"`
	ShowFood         bool    `json:"show_food"`
	GoodsSubcategory string  `json:"goods_subcategory"`
	FoodSubcategory  string  `json:"food_subcategory"`
	TimePostedMax    float64 `json:"time_posted_max"`
	ShowPermanent    bool    `json:"show_permanent"`
}

// Default returns the filter set applied on first use: everything visible,
// no subcategory narrowing.
func Default() Key {
	return Key{
		ShowGoods:        true,
		ShowFood:         true,
		GoodsSubcategory: "All",
		FoodSubcategory:  "All",
		TimePostedMax:    DefaultMaxAgeDays,
		ShowPermanent:    true,
	}
}

// Values encodes the key as backend query parameters.
func (k Key) Values() url.Values {
	v := url.Values{}
	v.Set("showGoods", boolParam(k.ShowGoods))
	v.Set("showFood", boolParam(k.ShowFood))
	v.Set("goodsSubcategory", k.GoodsSubcategory)
	v.Set("foodSubcategory", k.FoodSubcategory)
	v.Set("timePostedMax", strconv.FormatFloat(k.TimePostedMax, 'f', -1, 64))
	v.Set("showPermanent", boolParam(k.ShowPermanent))
	return v
}

func boolParam(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
