package order

// Lang selects the label language.
type Lang string

// Supported label languages.
const (
	LangEnglish Lang = "en"
	LangBangla  Lang = "bn"
)

// Category groups statuses for icons and badge colours.
type Category string

// Display categories.
const (
	CategoryWaiting   Category = "waiting"
	CategoryActive    Category = "active"
	CategoryInTransit Category = "in-transit"
	CategorySuccess   Category = "success"
	CategoryFailed    Category = "failed"
	CategoryUnknown   Category = "unknown"
)

var labels = map[Lang]map[Status]string{
	LangEnglish: {
		StatusPending:    "Order placed",
		StatusConfirmed:  "Confirmed",
		StatusProcessing: "Being prepared",
		StatusShipped:    "On the way",
		StatusDelivered:  "Delivered",
		StatusCancelled:  "Cancelled",
	},
	LangBangla: {
		StatusPending:    "অর্ডার গ্রহণ করা হয়েছে",
		StatusConfirmed:  "নিশ্চিত করা হয়েছে",
		StatusProcessing: "প্রস্তুত করা হচ্ছে",
		StatusShipped:    "পথে আছে",
		StatusDelivered:  "ডেলিভারি সম্পন্ন",
		StatusCancelled:  "বাতিল করা হয়েছে",
	},
}

var categories = map[Status]Category{
	StatusPending:    CategoryWaiting,
	StatusConfirmed:  CategoryActive,
	StatusProcessing: CategoryActive,
	StatusShipped:    CategoryInTransit,
	StatusDelivered:  CategorySuccess,
	StatusCancelled:  CategoryFailed,
}

// Label returns the customer-facing name of s. Unknown languages fall back to
// English and unknown statuses to the raw value.
func Label(s Status, lang Lang) string {
	set, ok := labels[lang]
	if !ok {
		set = labels[LangEnglish]
	}
	if l, ok := set[s]; ok {
		return l
	}
	return string(s)
}

// CategoryOf returns the icon category of s.
func CategoryOf(s Status) Category {
	if c, ok := categories[s]; ok {
		return c
	}
	return CategoryUnknown
}
