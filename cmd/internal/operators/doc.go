// Package operators is the credential directory for staff logins.
//
// Operators are loaded from a YAML file:
//
//	operators:
//	  - id: op_01
//	    email: alice@example.com
//	    name: Alice
//	    role: admin
//	    status: active
//	    permissions: [sessions:read, sessions:revoke]
//	    password_hash: $argon2id$v=19$m=65536,t=3,p=2$...$...
//
// Generate hashes with `sessiond hash-password`.
package operators
