package pricing

// districts of Bangladesh, grouped by division.
var districts = []string{
	// Dhaka
	"Dhaka", "Faridpur", "Gazipur", "Gopalganj", "Kishoreganj", "Madaripur",
	"Manikganj", "Munshiganj", "Narayanganj", "Narsingdi", "Rajbari",
	"Shariatpur", "Tangail",
	// Chattogram
	"Bandarban", "Brahmanbaria", "Chandpur", "Chattogram", "Cox's Bazar",
	"Cumilla", "Feni", "Khagrachhari", "Lakshmipur", "Noakhali", "Rangamati",
	// Rajshahi
	"Bogura", "Chapai Nawabganj", "Joypurhat", "Naogaon", "Natore", "Pabna",
	"Rajshahi", "Sirajganj",
	// Khulna
	"Bagerhat", "Chuadanga", "Jashore", "Jhenaidah", "Khulna", "Kushtia",
	"Magura", "Meherpur", "Narail", "Satkhira",
	// Barishal
	"Barguna", "Barishal", "Bhola", "Jhalokathi", "Patuakhali", "Pirojpur",
	// Sylhet
	"Habiganj", "Moulvibazar", "Sunamganj", "Sylhet",
	// Rangpur
	"Dinajpur", "Gaibandha", "Kurigram", "Lalmonirhat", "Nilphamari",
	"Panchagarh", "Rangpur", "Thakurgaon",
	// Mymensingh
	"Jamalpur", "Mymensingh", "Netrokona", "Sherpur",
}

// Districts returns a copy of the built-in region catalog.
func Districts() []string {
	out := make([]string, len(districts))
	copy(out, districts)
	return out
}
