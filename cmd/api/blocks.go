package main

import (
	"net/http"

	httptools "github.com/xdoubleu/essentia/v2/pkg/communication/httptools"
	"github.com/xdoubleu/essentia/v2/pkg/parse"
)

// blocksHandler lists every block of a property, active and inactive, for
// the dashboard's availability view.
func (app *Application) blocksHandler(w http.ResponseWriter, r *http.Request) {
	propertyID, err := parse.URLParam[string](r, "id", nil)
	if err != nil {
		panic(err)
	}

	blocks, err := app.Repositories.Blocks.GetAllForProperty(r.Context(), propertyID)
	if err != nil {
		httptools.HandleError(w, r, err)
		return
	}

	app.writeJSON(w, http.StatusOK, blocks)
}
