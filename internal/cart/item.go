package cart

import (
	"encoding/base64"
	"encoding/json"

	"github.com/webshop-works/checkout/internal/catalog"
	"github.com/webshop-works/checkout/internal/money"
)

// Customization is one (title, value, price delta) selection made against a
// line item. Order is significant: two customization lists are the same set
// only when they match element-wise.
type Customization struct {
	Title      string      `json:"title"`
	Value      string      `json:"value"`
	PriceDelta money.Money `json:"priceDelta"`
}

// LineItem is one cart entry: a resolved catalog object, a quantity and the
// customizations it was added with. Items are owned exclusively by the cart
// holding them.
type LineItem struct {
	Key            string
	Object         catalog.Product
	Quantity       int
	Customizations []Customization
}

// ItemKey derives the identity key for a line item. Uncustomized items key
// on the object id alone; customized items append a stable, order-preserving
// encoding of the customization list. Two additions with the same object id
// and element-wise identical customizations always produce the same key.
func ItemKey(objectID string, customizations []Customization) string {
	if len(customizations) == 0 {
		return objectID
	}
	payload, err := json.Marshal(customizations)
	if err != nil {
		// Customizations are plain strings and Money; marshalling them
		// cannot fail at runtime.
		panic(err)
	}
	// URL-safe encoding: keys travel in request paths.
	return objectID + ":" + base64.RawURLEncoding.EncodeToString(payload)
}
