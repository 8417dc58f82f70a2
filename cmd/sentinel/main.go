// Sentinel is the content moderation service.
//
// It classifies user generated content before it is stored or shown:
//   - Structural validation (length, repetition, links, obfuscation)
//   - Abusive language and dangerous content detection
//   - Severity and confidence scoring
//   - Escalation of flagged content to reviewers and authors
//
// Usage:
//
//	# Start the server with default configuration
//	sentinel run
//
//	# Start with a configuration file
//	sentinel run --config /etc/sentinel/config.yaml
//
//	# Classify a single piece of content
//	sentinel classify --user u1 "some text"
//
//	# List unreviewed high severity records
//	sentinel records list --severity high --reviewed=false
//
//	# Grant the moderator role
//	sentinel roles grant u42 moderator
//
//	# Validate a custom rules file
//	sentinel rules lint --file rules.yaml
package main

func main() {
	Execute()
}
