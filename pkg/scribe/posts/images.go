package posts

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// maxImageSize caps uploaded images at 5 MiB
const maxImageSize = 5 << 20

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// ImageError represents an invalid image upload
type ImageError struct {
	Message string
}

func (e *ImageError) Error() string {
	return e.Message
}

// saveImage stores the multipart "image" field, if present, under
// mediaDir/posts/ with a random filename. Returns the stored path relative
// to the media root, or "" when the request carries no image. Requests that
// are not multipart are not an error.
func (h *Handler) saveImage(c *gin.Context) (string, error) {
	file, err := c.FormFile("image")
	if err != nil {
		if err == http.ErrMissingFile {
			return "", nil
		}
		// Not a multipart request, or no image field
		return "", nil
	}

	if file.Size > maxImageSize {
		return "", &ImageError{"Image exceeds the 5 MiB size limit"}
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedImageExts[ext] {
		return "", &ImageError{"Image must be a jpg, jpeg, png, or gif file"}
	}

	name := uuid.NewString() + ext
	relPath := filepath.Join("posts", name)
	if err := c.SaveUploadedFile(file, filepath.Join(h.mediaDir, relPath)); err != nil {
		return "", err
	}

	return relPath, nil
}
