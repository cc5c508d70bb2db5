package patterns

import "github.com/bastionsec/sharescan/pkg/models"

// Detection categories shipped with the default rule set.
const (
	CategoryCredential     = "credential"
	CategoryPII            = "pii"
	CategoryFinancial      = "financial"
	CategoryHR             = "hr"
	CategoryHealth         = "health"
	CategoryIdentity       = "identity"
	CategoryClassification = "classification"
	CategoryLegal          = "legal"
	CategoryBackup         = "backup"
	CategoryConfiguration  = "configuration"
	CategorySecurity       = "security"
)

// Defaults returns the built-in detection rules. The store seeds these
// into sensitive_patterns on first init; they are also the fallback when
// the table is empty or unreachable.
func Defaults() []models.Pattern {
	return []models.Pattern{
		{Pattern: `pass(word)?|passwd|secret|credential|\bkey\b|token|api.?key`, Category: CategoryCredential, Description: "Passwords, secrets and API keys", Enabled: true},
		{Pattern: `\bssn\b|social.?security|tax|passport`, Category: CategoryPII, Description: "Personal identifiers", Enabled: true},
		{Pattern: `bank|account|routing|iban|credit.?card`, Category: CategoryFinancial, Description: "Financial records", Enabled: true},
		{Pattern: `salar(y|ies)|payroll|employee`, Category: CategoryHR, Description: "HR and payroll records", Enabled: true},
		{Pattern: `medical|patient|\brx\b`, Category: CategoryHealth, Description: "Health records", Enabled: true},
		{Pattern: `driver.?licen[cs]e|birth.?certificate`, Category: CategoryIdentity, Description: "Identity documents", Enabled: true},
		{Pattern: `confidential|private|sensitive|restricted`, Category: CategoryClassification, Description: "Classification markings", Enabled: true},
		{Pattern: `contract|\bnda\b`, Category: CategoryLegal, Description: "Legal documents", Enabled: true},
		{Pattern: `backup|\bdump\b|export|archive`, Category: CategoryBackup, Description: "Backups and data dumps", Enabled: true},
		{Pattern: `config|settings|\benv\b|properties`, Category: CategoryConfiguration, Description: "Configuration files", Enabled: true},
		{Pattern: `\.key$`, Category: CategorySecurity, Description: "Private key file", Enabled: true},
		{Pattern: `\.pem$`, Category: CategorySecurity, Description: "PEM certificate or key", Enabled: true},
		{Pattern: `\.pfx$`, Category: CategorySecurity, Description: "PKCS#12 bundle", Enabled: true},
		{Pattern: `\.p12$`, Category: CategorySecurity, Description: "PKCS#12 keystore", Enabled: true},
		{Pattern: `\.kdb$`, Category: CategorySecurity, Description: "KeePass database", Enabled: true},
		{Pattern: `\.kdbx$`, Category: CategorySecurity, Description: "KeePass database", Enabled: true},
	}
}
