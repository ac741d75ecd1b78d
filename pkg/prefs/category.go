package prefs

// Category identifies a notification category.
type Category string

const (
	// Locked categories: their email delivery cannot be disabled by user
	// preference. Enforced on both reads and writes, not just in the UI.
	CategoryVerification  Category = "verification"
	CategorySecurity      Category = "security"
	CategoryDirectMessage Category = "direct_message"

	// Optional categories: enabled by default, users may opt out.
	CategorySystem       Category = "system"
	CategoryActivity     Category = "activity"
	CategoryExchange     Category = "exchange"
	CategoryAnnouncement Category = "announcement"
	CategoryMarketing    Category = "marketing"
)

type categoryInfo struct {
	bit    uint64
	label  string
	locked bool
}

// catalog is the fixed category set. Bits identify a category in a user's
// disabled mask and must never be reassigned once released.
var catalog = map[Category]categoryInfo{
	CategoryVerification:  {bit: 1 << 0, label: "Account verification", locked: true},
	CategorySecurity:      {bit: 1 << 1, label: "Security alerts", locked: true},
	CategoryDirectMessage: {bit: 1 << 2, label: "Direct messages", locked: true},
	CategorySystem:        {bit: 1 << 3, label: "System notices"},
	CategoryActivity:      {bit: 1 << 4, label: "Activity updates"},
	CategoryExchange:      {bit: 1 << 5, label: "Reward exchanges"},
	CategoryAnnouncement:  {bit: 1 << 6, label: "Announcements"},
	CategoryMarketing:     {bit: 1 << 7, label: "News and offers"},
}

// categories in stable display order.
var categories = []Category{
	CategoryVerification,
	CategorySecurity,
	CategoryDirectMessage,
	CategorySystem,
	CategoryActivity,
	CategoryExchange,
	CategoryAnnouncement,
	CategoryMarketing,
}

// optionalMask covers every bit a user is allowed to disable.
var optionalMask = func() uint64 {
	var mask uint64
	for _, info := range catalog {
		if !info.locked {
			mask |= info.bit
		}
	}
	return mask
}()

// Known reports whether the category exists in the catalog.
func (c Category) Known() bool {
	_, ok := catalog[c]
	return ok
}

// Locked reports whether the category's email delivery is non-optional.
// Unknown categories are not locked.
func (c Category) Locked() bool {
	return catalog[c].locked
}

// Label returns the human-readable category label.
func (c Category) Label() string {
	return catalog[c].label
}

// Categories returns the full catalog in stable order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}
