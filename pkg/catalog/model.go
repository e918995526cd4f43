package catalog

const (
	NamespaceSell   = "items"
	NamespaceRent   = "rent-items"
	NamespaceDonate = "donation-items"
)

// Listing is the stub catalog representation of a listed item.
type Listing struct {
	ID        string `json:"id"`
	Namespace string `json:"namespace"`
	Title     string `json:"title,omitempty"`
}
