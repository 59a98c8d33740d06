// Package setup renders the snippet that prepares Maya for mayapilot: it
// resets the history file, points the script editor history at it and opens
// the command port.
package setup

import (
	"fmt"
	"strings"
	"text/template"
)

var scriptTemplate = template.Must(template.New("setup").Funcs(template.FuncMap{"quote": pyQuote}).Parse(`import os
import maya.cmds as cmds

mayaHistoryPath = {{ .HistoryPath | quote }}
mayaHistoryPath = os.path.expanduser(mayaHistoryPath)

# Reset the history file
try:
    with open(mayaHistoryPath, 'w') as f:
        f.write("")
except Exception:
    print("Unable to clear maya history file")

cmds.scriptEditorInfo(e=True, wh=True)
cmds.scriptEditorInfo(e=True, hfn=mayaHistoryPath)

try:
    cmds.commandPort(name=":{{ .Port }}", sourceType="python", echoOutput=True)
    print("Command Port started on {{ .Port }}")
except Exception:
    print("Unable to start Command Port on {{ .Port }}. It might be already running")
`))

// Params are the values substituted into the script.
type Params struct {
	Port        int
	HistoryPath string
}

// Script renders the setup snippet for the given port and history path.
func Script(port int, historyPath string) (string, error) {
	if port < 1 || port > 65535 {
		return "", fmt.Errorf("invalid port %d", port)
	}
	if strings.TrimSpace(historyPath) == "" {
		return "", fmt.Errorf("history path is empty")
	}

	var b strings.Builder
	if err := scriptTemplate.Execute(&b, Params{Port: port, HistoryPath: historyPath}); err != nil {
		return "", fmt.Errorf("render setup script: %w", err)
	}
	return b.String(), nil
}

// pyQuote renders s as a double-quoted Python string literal.
func pyQuote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}
