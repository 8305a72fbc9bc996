package category

import "path"

// Image describes a category picture.
type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// Category is a catalog node. Root categories have no parent.
type Category struct {
	ID        int
	Title     string
	Image     Image
	ParentID  *int
	Favorite  bool
	Available bool
}

// Item is the public DTO returned by the category API.
type Item struct {
	ID            int    `json:"id"`
	Title         string `json:"title"`
	Image         Image  `json:"image"`
	Subcategories []Sub  `json:"subcategories"`
}

// Sub is a subcategory inside Item.
type Sub struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Image Image  `json:"image"`
}

// publicImage fills an empty alt with the file name.
func publicImage(img Image) Image {
	if img.Alt == "" && img.Src != "" {
		img.Alt = path.Base(img.Src)
	}
	return img
}
