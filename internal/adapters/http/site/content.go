package site

// Copy shown on the marketing pages.

type feature struct {
	Title       string
	Description string
}

type planFeature struct {
	Text     string
	Included bool
}

type plan struct {
	Name         string
	AnnualPrice  string
	MonthlyPrice string
	Description  string
	Popular      bool
	Features     []planFeature
}

// Price returns the price for the selected billing period.
func (p plan) Price(annual bool) string {
	if annual {
		return p.AnnualPrice
	}
	return p.MonthlyPrice
}

type partner struct {
	Name        string
	Partnership string
}

type stat struct {
	Value string
	Label string
}

type asset struct {
	Name     string
	Symbol   string
	Amount   float64
	ValueUSD float64
	Change   float64
}

var features = []feature{
	{"Secure & Reliable", "Enterprise-grade security with 99.9% uptime guarantee to keep your business running smoothly."},
	{"Scalable Architecture", "Our solutions grow with your business, from startup to enterprise, without missing a beat."},
	{"Lightning Fast", "Optimized for performance with global CDN and edge caching for lightning-fast load times."},
}

var services = []feature{
	{"Web Development", "Custom websites and web applications built on modern, maintainable stacks."},
	{"Mobile Apps", "Native and cross-platform apps designed around how your users actually work."},
	{"Cloud Solutions", "Migration, hosting and operations for workloads that need to scale."},
	{"Startup Consulting", "Pitch preparation, investor introductions and go-to-market planning."},
}

var projects = []feature{
	{"Fintech Dashboard", "Real-time portfolio analytics for a lending platform."},
	{"Health Records Portal", "Patient-facing records and appointment booking."},
	{"E-commerce Relaunch", "Storefront rebuild with a headless checkout."},
}

var plans = []plan{
	{
		Name: "Starter", AnnualPrice: "Rs. 299", MonthlyPrice: "Rs. 399",
		Description: "Perfect for small businesses and startups",
		Features: []planFeature{
			{"Up to 5 Projects", true}, {"Basic Analytics", true}, {"Standard Support", true},
			{"Custom Domain", true}, {"Advanced Integrations", false}, {"Priority Support", false},
			{"Custom Branding", false},
		},
	},
	{
		Name: "Professional", AnnualPrice: "Rs. 799", MonthlyPrice: "Rs. 999",
		Description: "Ideal for growing businesses and teams", Popular: true,
		Features: []planFeature{
			{"Unlimited Projects", true}, {"Advanced Analytics", true}, {"Priority Support", true},
			{"Custom Domain", true}, {"Advanced Integrations", true}, {"API Access", true},
			{"Custom Branding", false},
		},
	},
	{
		Name: "Enterprise", AnnualPrice: "Rs. 199", MonthlyPrice: "Rs. 249",
		Description: "For large organizations with complex needs",
		Features: []planFeature{
			{"Unlimited Projects", true}, {"Advanced Analytics", true}, {"Premium Support", true},
			{"Custom Domain", true}, {"Advanced Integrations", true}, {"API Access", true},
			{"Custom Branding", true},
		},
	},
}

var partners = []partner{
	{"Vivaran Consultancies", "Strategic Technology Partner"},
	{"Stellar", "Security Infrastructure Partner"},
	{"AlgoWise Technologies", "R&D Partner"},
	{"Bharat Edge", "Strategic Partner"},
}

var values = []feature{
	{"Innovation First", "We constantly push boundaries and embrace emerging technologies."},
	{"Client Success", "Your success is our success. We are committed in delivering exceptional results."},
	{"Quality Excellence", "We maintain the highest standards in everything we do."},
	{"Global Perspective", "Our diverse team brings worldwide insights and expertise."},
}

var stats = []stat{
	{"300+", "Happy Clients"},
	{"27+", "Successful Businesses"},
	{"73+", "Completed Projects"},
	{"3+", "Years of Experience"},
}

var holdings = []asset{
	{"Bitcoin", "BTC", 15, 1_260_000, 2.4},
	{"Ethereum", "ETH", 953, 1_905_000, 1.7},
}

func totalHoldings() float64 {
	var sum float64
	for _, a := range holdings {
		sum += a.ValueUSD
	}
	return sum
}
