package grammar

type SemanticError struct {
	message string
}

func newSemanticError(message string) *SemanticError {
	return &SemanticError{
		message: message,
	}
}

func (e *SemanticError) Error() string {
	return e.message
}

var (
	semErrNoGrammarName         = newSemanticError("name is missing")
	semErrUnusedProduction      = newSemanticError("unused production")
	semErrUnusedTerminal        = newSemanticError("unused terminal")
	semErrTermCannotBeSkipped   = newSemanticError("a terminal used in productions cannot be skipped")
	semErrNoProduction          = newSemanticError("a grammar needs at least one production")
	semErrUndefinedSym          = newSemanticError("undefined symbol")
	semErrDuplicateProduction   = newSemanticError("duplicate production")
	semErrDuplicateTerminal     = newSemanticError("duplicate terminal")
	semErrDuplicateName         = newSemanticError("duplicate names are not allowed between terminals and non-terminals")
	semErrErrSymIsReserved      = newSemanticError("symbol 'error' is reserved as a terminal symbol")
	semErrDuplicateLabel        = newSemanticError("a label must be unique in an alternative")
	semErrDirInvalidName        = newSemanticError("invalid directive name")
	semErrDirInvalidParam       = newSemanticError("invalid parameter")
	semErrDuplicateDir          = newSemanticError("a directive must not be duplicated")
	semErrDuplicateAssoc        = newSemanticError("associativity and precedence cannot be specified multiple times for a symbol")
	semErrUndefinedPrec         = newSemanticError("symbol must has precedence")
	semErrInvalidProdDir        = newSemanticError("invalid production directive")
	semErrInvalidAltDir         = newSemanticError("invalid alternative directive")
	semErrUndefinedLiteral      = newSemanticError("a literal used in a directive must appear in a production")
	semErrSpellingInconsistency = newSemanticError("the identifiers are treated as the same. please use the same spelling")
	semErrHiddenStart           = newSemanticError("the start symbol cannot be hidden")
)
