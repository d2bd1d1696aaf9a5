package api

import (
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"net/http"
)

// ImageSource is a source whose still image can be replaced.
type ImageSource interface {
	GetImage() image.Image
	SetImage(img image.Image) error
}

// @Summary	Fetch or replace the image of an image source
// @Router		/api/source/image [get]
// @Router		/api/source/image [put]
// @Tags		media
// @Param		image	body	string	false	"PNG or JPEG image of the source's size, for PUT"
// @Success	200
// @Failure	400	{string}	string	"The body is not a valid image of the right size"
// @Failure	404	{string}	string	"The source is not an image source"
// @Produce	png
func (a *Api) handleSourceImage(w http.ResponseWriter, req *http.Request) {
	src, ok := a.ctrl.Source().(ImageSource)
	if !ok {
		http.Error(w, "not an image source", http.StatusNotFound)
		return
	}

	switch req.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "image/png")
		if err := png.Encode(w, src.GetImage()); err != nil {
			a.logger.Warn(fmt.Sprintf("could not encode image: %s", err))
		}
	case http.MethodPut:
		newImage, ftype, err := image.Decode(req.Body)
		if err != nil {
			http.Error(w, fmt.Sprintf("not a valid image: %s", err), http.StatusBadRequest)
			return
		}
		a.logger.Info(fmt.Sprintf("Image source was updated with new %s image (%dx%d)", ftype, newImage.Bounds().Dx(), newImage.Bounds().Dy()))
		if err := src.SetImage(newImage); err != nil {
			http.Error(w, fmt.Sprintf("could not update image: %s", err), http.StatusBadRequest)
			return
		}
		a.writeOK(w)
	default:
		http.Error(w, "Invalid method, only GET and PUT supported", http.StatusMethodNotAllowed)
	}
}
