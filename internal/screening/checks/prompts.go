package checks

import (
	"fmt"
	"strings"
)

// maxPageChars bounds how much scraped page text goes into a prompt.
const maxPageChars = 12000

func stateRegistryPrompt(name, state, page string) string {
	if len(page) > maxPageChars {
		page = page[:maxPageChars]
	}
	return fmt.Sprintf(`The following text was taken from the %s Secretary of State business search results for %q.

Decide whether the company is registered in this state and, if it is, its registration details.
Respond with a JSON object with exactly these fields:
  "found": true if the company appears in the results, otherwise false
  "registration_date": the registration or formation date as YYYY-MM-DD, or null
  "years_in_business": years since registration as a number, or null
  "status": the registry status text (for example "Active", "Forfeited", "Inactive"), or null
  "active": true if the status means the entity is in good standing, false if not, or null

Search results:
%s`, state, name, page)
}

func webPresencePrompt(name, address, website string) string {
	if website == "" {
		website = "none provided"
	}
	return fmt.Sprintf(`Search the web for the business %q located at %q (website: %s).

Respond with a JSON object with exactly these boolean fields:
  "listing_found": a business listing (for example Google Business, Yelp, BBB) exists for this company
  "listing_address_matches": the listing's address matches the address above
  "website_found": the company has its own website
  "website_address_matches": the website shows an address matching the address above`, name, address, website)
}

func adverseMediaPrompt(name, address, website string, stalenessYears int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Search news and public records for adverse media about the company %q at %q", name, address)
	if website != "" {
		fmt.Fprintf(&b, " (website: %s)", website)
	}
	fmt.Fprintf(&b, `.

Report only severe findings: fraud, financial crime, sanctions evasion, bankruptcy, regulatory enforcement, or litigation material to the company's size.
Use materiality thresholds proportional to company size: a small business lawsuit over $50,000 is material, a large enterprise needs amounts above $5,000,000.
Ignore findings older than %d years.
Ignore routine incidents: ordinary customer complaints, minor labor disputes, and resolved small claims.
Ignore news about other companies with similar names.

Respond with a JSON object:
  "adverse_findings": true if any qualifying finding exists, otherwise false
  "reasons": a list of short one-line descriptions, one per finding (empty when there are none)`, stalenessYears)
	return b.String()
}
