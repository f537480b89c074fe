// internal/domain/models/preferences.go
package models

import "time"

// Content categories a parent can allow.
const (
	CategoryKidsCartoon     = "kids_cartoon"
	CategoryIQGames         = "iq_games"
	CategoryFunGames        = "fun_games"
	CategoryEnglishLearning = "english_learning"
)

// ContentCategories lists every category in display order.
var ContentCategories = []string{
	CategoryKidsCartoon,
	CategoryIQGames,
	CategoryFunGames,
	CategoryEnglishLearning,
}

// ParentPreferences holds what a parent wants their children to see. One
// document per parent, keyed by the parent id. Clients use it to filter
// discovery; the server stores it as given.
type ParentPreferences struct {
	ParentID           string   `bson:"_id" json:"parent_id"`
	AllowedChannelURLs []string `bson:"allowed_channel_urls" json:"allowed_channel_urls"`
	AllowedCategories  []string `bson:"allowed_categories" json:"allowed_categories"`

	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
