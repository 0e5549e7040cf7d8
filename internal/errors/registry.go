package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Suggestion string
}

// Codes referenced from other packages.
const (
	CodePropTypes        = "E100"
	CodePropNotObject    = "E101"
	CodeDuplicateGlobal  = "E102"
	CodeDuplicateKey     = "E103"
	CodePropType         = "E104"
	CodeRequiredMissing  = "E105"
	CodeBinding          = "E110"
	CodeForSyntax        = "E111"
	CodeOnSyntax         = "E112"
	CodeStatement        = "E113"
	CodeConfigInvalid    = "E120"
	CodeConfigNotFound   = "E121"
	CodeUnknownComponent = "E130"
	CodeInvalidInput     = "E140"
)

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Configuration Errors (E100-E109)
	// ============================================

	CodePropTypes: {
		Category:   CategoryConfig,
		Message:    "Malformed prop types",
		Suggestion: "Each prop type schema must be a valid CUE expression such as `string` or `int | *0`.",
	},
	CodePropNotObject: {
		Category: CategoryConfig,
		Message:  "Prop argument must be an object",
	},
	CodeDuplicateGlobal: {
		Category:   CategoryConfig,
		Message:    "Duplicate global exposure name",
		Suggestion: "Exposed names are shared by every component of a page; rename one of them.",
	},
	CodeDuplicateKey: {
		Category:   CategoryConfig,
		Message:    "Data key duplicates a prop key",
		Suggestion: "Rename the data field or map the prop with `parentKey:childKey`.",
	},
	CodePropType: {
		Category: CategoryConfig,
		Message:  "Prop value does not match its type",
	},
	CodeRequiredMissing: {
		Category: CategoryConfig,
		Message:  "Required prop missing",
	},

	// ============================================
	// Binding Errors (E110-E119)
	// ============================================

	CodeBinding: {
		Category: CategoryBinding,
		Message:  "Binding expression failed",
	},
	CodeForSyntax: {
		Category:   CategoryBinding,
		Message:    "Malformed v-for expression",
		Suggestion: `Use the form v-for="(item, index) in list".`,
	},
	CodeOnSyntax: {
		Category:   CategoryBinding,
		Message:    "Malformed v-on expression",
		Suggestion: `Use the form v-on="click=save(), input=search(query)".`,
	},
	CodeStatement: {
		Category:   CategoryBinding,
		Message:    "Unsupported statement in handler",
		Suggestion: "Handlers may contain expressions and assignments separated by ';' or newlines.",
	},

	// ============================================
	// Config File Errors (E120-E129)
	// ============================================

	CodeConfigInvalid: {
		Category:   CategoryConfig,
		Message:    "Invalid vbind.json",
		Suggestion: "Check that vbind.json is valid JSON",
	},
	CodeConfigNotFound: {
		Category: CategoryConfig,
		Message:  "vbind.json not found",
	},

	// ============================================
	// Runtime Errors (E130-E139)
	// ============================================

	CodeUnknownComponent: {
		Category: CategoryRuntime,
		Message:  "Unknown element or global",
	},

	// ============================================
	// CLI Errors (E140-E149)
	// ============================================

	CodeInvalidInput: {
		Category: CategoryCLI,
		Message:  "Invalid input file",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
