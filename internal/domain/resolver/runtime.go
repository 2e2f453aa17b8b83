package resolver

import (
	"fmt"
	"strings"
)

const runtimeFilter = `^(react|react-dom|react-dom/client)$`

// ReactExports are the names the "react" shim re-exports
var ReactExports = []string{
	"createElement",
	"Fragment",
	"StrictMode",
	"createContext",
	"forwardRef",
	"memo",
	"isValidElement",
	"cloneElement",
	"Children",
	"useState",
	"useReducer",
	"useEffect",
	"useLayoutEffect",
	"useMemo",
	"useCallback",
	"useRef",
	"useContext",
	"useId",
}

// ReactDOMExports are the names the "react-dom/client" shim re-exports
var ReactDOMExports = []string{
	"createRoot",
}

func errUnknownRuntime(path string) error {
	return fmt.Errorf("no runtime shim for %q", path)
}

// RuntimeContents returns the shim for a runtime import
func RuntimeContents(path string) (string, bool) {
	switch path {
	case "react":
		return shim(ReactGlobal, ReactExports), true
	case "react-dom", "react-dom/client":
		return shim(ReactDOMGlobal, ReactDOMExports), true
	}
	return "", false
}

func shim(global string, names []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "const runtime = window[%q];\n", global)
	b.WriteString("export default runtime;\n")
	for _, name := range names {
		fmt.Fprintf(&b, "export const %s = runtime.%s;\n", name, name)
	}
	return b.String()
}
