// Main entry point for the application
package main

import (
	"fygallery/internal/ui"
)

func main() {
	ui.CreateApplication()
}
