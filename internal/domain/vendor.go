package domain

// Represents a synthetic vendor placed near the user's location.
// A VendorRecord is created by the sampler and is never mutated; a new
// selection replaces the whole set.
type VendorRecord struct {
	Name       string
	Category   string
	Coordinate Coordinates
	Address    string
}

// Subset of a vendor handed to the details page.
type VendorDetails struct {
	Name     string
	Category string
	Address  string
}

func (v VendorRecord) Details() VendorDetails {
	return VendorDetails{Name: v.Name, Category: v.Category, Address: v.Address}
}
