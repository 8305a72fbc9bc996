package tag

// Tag labels products for filtering.
type Tag struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
