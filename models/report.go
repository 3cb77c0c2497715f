package models

// MissingReport counts empty values per text column before cleaning.
type MissingReport struct {
	Rows       int            `json:"rows"`
	EmptyByCol map[string]int `json:"empty_by_column"`
}

// Summary holds descriptive statistics over a cleaned dataset.
type Summary struct {
	Books            int         `json:"books"`
	MinPriceGBP      float64     `json:"min_price_gbp"`
	MaxPriceGBP      float64     `json:"max_price_gbp"`
	MeanPriceGBP     float64     `json:"mean_price_gbp"`
	MedianPriceGBP   float64     `json:"median_price_gbp"`
	MinPriceUSD      float64     `json:"min_price_usd"`
	MaxPriceUSD      float64     `json:"max_price_usd"`
	MeanPriceUSD     float64     `json:"mean_price_usd"`
	MedianPriceUSD   float64     `json:"median_price_usd"`
	RatingCounts     map[int]int `json:"rating_counts"`
	UniqueCategories int         `json:"unique_categories"`
	InStock          int         `json:"in_stock"`
	InStockShare     float64     `json:"in_stock_share"`
}

// CleaningReport records what each cleaning stage did.
type CleaningReport struct {
	InitialRows               int            `json:"initial_rows"`
	FinalRows                 int            `json:"final_rows"`
	DuplicatesRemoved         int            `json:"duplicates_removed"`
	MissingDescriptionsFilled int            `json:"missing_descriptions_filled"`
	DescriptionsCleaned       int            `json:"descriptions_cleaned"`
	CategoriesChanged         int            `json:"categories_changed"`
	CategoriesFilled          int            `json:"categories_filled"`
	ExchangeRate              float64        `json:"exchange_rate"`
	ExchangeRateSource        string         `json:"exchange_rate_source"`
	InvalidValues             map[string]int `json:"invalid_values"`
	Missing                   MissingReport  `json:"missing_before"`
	Summary                   Summary        `json:"summary"`
}
