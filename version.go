package openelp

// Version is reported by Ident and the command line usage text.
const Version = "0.1.0"

// Banner is the first line written by Ident.
func Banner() string {
	return "OpenELP - Open EchoLink Proxy " + Version
}
