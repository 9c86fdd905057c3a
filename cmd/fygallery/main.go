// Command fygallery opens the photo gallery window. Files and folders given
// as arguments are added to the gallery on start.
package main

import (
	"fygallery/internal/ui"
)

func main() {

	ui.CreateApplication()
}
