// Package docs provides generated OpenAPI documentation.
//
// pdf2typst API
//
//	@title			pdf2typst API
//	@version		1.0
//	@description	PDF to Typst conversion API for driving sessions and conversions.
//
//	@contact.name	API Support
//	@contact.url	https://github.com/luoqiao6/pdf-to-typst-mcp
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8177
//	@BasePath	/
//
//	@schemes	http
package docs

//go:generate swag init -g ../cmd/pdf2typst/serve.go -o ./swagger --parseDependency --parseInternal
