package command

import (
	"fmt"
	"strings"
)

const (
	// ExecTemplate runs a snippet in the host's top-level namespace and
	// prints the traceback and the exception instead of raising.
	ExecTemplate = `import __main__
import traceback
try:
    exec('''%s''', __main__.__dict__, __main__.__dict__)
except Exception as e:
    traceback.print_exc()
    print(e)`

	// PrettyPrintTemplate prints the value of a bare expression.
	PrettyPrintTemplate = `import pprint;
pp = pprint.PrettyPrinter(indent=2);
pp.pprint(%s)`
)

// IsBareExpression reports whether snippet is one line with neither a space
// nor an "=".
func IsBareExpression(snippet string) bool {
	return !strings.ContainsAny(snippet, " =\n")
}

// Wrap produces the payload sent to the host for snippet.
func Wrap(snippet string) string {
	if IsBareExpression(snippet) {
		snippet = fmt.Sprintf(PrettyPrintTemplate, snippet)
	}
	return fmt.Sprintf(ExecTemplate, snippet)
}

// Unwrap recovers the snippet from a payload built by Wrap. It reports false
// when payload was not built by Wrap.
func Unwrap(payload string) (string, bool) {
	execPrefix, execSuffix, _ := strings.Cut(ExecTemplate, "%s")
	if !strings.HasPrefix(payload, execPrefix) || !strings.HasSuffix(payload, execSuffix) {
		return "", false
	}
	body := payload[len(execPrefix) : len(payload)-len(execSuffix)]

	ppPrefix, ppSuffix, _ := strings.Cut(PrettyPrintTemplate, "%s")
	if strings.HasPrefix(body, ppPrefix) && strings.HasSuffix(body, ppSuffix) {
		body = body[len(ppPrefix) : len(body)-len(ppSuffix)]
	}
	return strings.ReplaceAll(body, `\'\'\'`, `'''`), true
}
