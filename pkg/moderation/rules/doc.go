// Package rules loads operator supplied detection rules from YAML and keeps
// them installed in a moderation.Matcher.
//
// A rules file looks like:
//
//	version: 1
//	rules:
//	  - name: crypto_promo
//	    kind: spam
//	    phrases: ["free crypto", "double your bitcoin"]
//	  - name: local_insult
//	    kind: abusive_language
//	    phrases: ["scrub"]
//	    obfuscate: true
//	  - name: card_skimmer
//	    kind: dangerous_content
//	    regex: '(?i)\bcard skimmers?\b'
//
// Custom patterns run after the built-in patterns of the same kind. A file
// that fails to parse or compile is rejected as a whole and the previous
// rule set stays active.
package rules
