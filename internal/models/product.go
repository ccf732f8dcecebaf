package models

// Product is the result of a barcode lookup against the external catalog.
// A miss is a normal outcome: Found is false and the other fields are empty.
type Product struct {
	Barcode     string `json:"barcode"`
	Name        string `json:"name,omitempty"`
	Image       string `json:"image,omitempty"`
	Description string `json:"description,omitempty"`
	Found       bool   `json:"found"`
}

// ExtractedProduct holds the structured fields the vision service reads off
// a product label photo. Any subset may be absent.
type ExtractedProduct struct {
	ProductName string   `json:"productName,omitempty"`
	Price       string   `json:"price,omitempty"`
	Brand       string   `json:"brand,omitempty"`
	Model       string   `json:"model,omitempty"`
	Condition   string   `json:"condition,omitempty"`
	Warranty    string   `json:"warranty,omitempty"`
	Features    []string `json:"features,omitempty"`
	// RawTranslation carries the model's free-form answer when it did not
	// return valid structured JSON.
	RawTranslation string `json:"rawTranslation,omitempty"`
}
