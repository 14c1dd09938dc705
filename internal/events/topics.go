package events

// Topic constants for cart mutations.
const (
	TopicItemAdded       = "cart.item_added"
	TopicItemUpdated     = "cart.item_updated"
	TopicItemRemoved     = "cart.item_removed"
	TopicCartEmptied     = "cart.emptied"
	TopicCartCleared     = "cart.cleared"
	TopicDiscountApplied = "cart.discount_applied"
	TopicPostageSearched = "cart.postage_searched"
	TopicPostageSelected = "cart.postage_selected"
)
