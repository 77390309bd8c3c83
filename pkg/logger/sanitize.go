package logger

import (
	"log/slog"
	"strings"
)

// Attribute keys whose values are masked before a record is written. The
// match is case-insensitive and also fires on substrings, so "db_password"
// and "jwt_secret" are caught without listing every variant.
var sensitiveKeySubstrings = []string{
	// credentials and tokens
	"password", "passwd", "pwd",
	"secret", "token", "jwt",
	"authorization", "auth", "bearer",
	"api_key", "apikey", "api-key",
	"private_key", "privatekey", "private-key",
	"cookie", "session", "csrf", "xsrf",
	"credential",

	// cloud and connection strings
	"aws_access_key", "aws_secret",
	"gcp_credentials", "azure_client",
	"connection_string", "connectionstring", "dsn", "database_url",

	// keys and certificates
	"ssh_key", "sshkey", "certificate", "cert",
	"signing_key", "encryption_key", "decryption_key",
	"master_key", "kms_key", "salt", "nonce",
	"ciphertext", "plaintext", "hash",

	// personal data
	"credit_card", "creditcard", "ssn",
	"email", "phone", "address", "dob",
}

// sanitizeAttr masks sensitive values in log attributes.
func sanitizeAttr(_ []string, a slog.Attr) slog.Attr {
	key := strings.ToLower(a.Key)

	for _, sensitive := range sensitiveKeySubstrings {
		if strings.Contains(key, sensitive) {
			return slog.String(a.Key, "[REDACTED]")
		}
	}
	return a
}
