// Package password hashes and verifies operator passwords with Argon2id.
//
// Encoded hashes use the PHC string format:
//
//	$argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<salt_b64>$<hash_b64>
//
// Hash strings read from the operators file are untrusted input: Verify
// refuses parameters far above the configured cost.
package password
