package handlers

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"kailospay.backend/internal/domain/entities"
	domainerrors "kailospay.backend/internal/domain/errors"
	"kailospay.backend/internal/interfaces/http/middleware"
	"kailospay.backend/internal/interfaces/http/response"
	"kailospay.backend/pkg/utils"
)

const (
	// FilesField is the multipart field for document uploads.
	FilesField = "files"
	// IDCardField is the multipart field for id-card images.
	IDCardField = "idcard"
)

// currentUser writes the uniform 401 when the auth middleware did not run.
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c)
	}
	return userID, ok
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Error(c, domainerrors.NotFound("resource not found"))
		return uuid.Nil, false
	}
	return id, true
}

// optionalUUID parses an optional id. An empty string is nil; a malformed
// one is a 400.
func optionalUUID(raw, field string) (*uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, domainerrors.BadRequest("invalid " + field)
	}
	return &id, nil
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(utils.DefaultPageLimit)))
	p := utils.GetPaginationParams(page, limit)
	return p.Page, p.Limit
}

// bindJSON binds an optional JSON body. An empty body leaves v untouched.
func bindJSON(c *gin.Context, v interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return false
	}
	return true
}

// openedFiles is a multipart upload opened for streaming into the store.
type openedFiles struct {
	files   []entities.IncomingFile
	closers []multipart.File
}

func (o *openedFiles) Close() {
	for _, f := range o.closers {
		_ = f.Close()
	}
}

// multipartFiles opens every file under field. A request that is not
// multipart yields no files, which the usecases report as no_files.
func multipartFiles(c *gin.Context, field string) (*openedFiles, error) {
	out := &openedFiles{}
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return out, nil
		}
		return nil, domainerrors.BadRequest("invalid multipart body")
	}

	for _, fh := range form.File[field] {
		f, err := fh.Open()
		if err != nil {
			out.Close()
			return nil, domainerrors.BadRequest("unreadable file")
		}
		out.closers = append(out.closers, f)
		out.files = append(out.files, entities.IncomingFile{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Body:        f,
		})
	}
	return out, nil
}

// identityDocument reads the id-card image into memory, up to maxBytes+1 so
// the usecase can tell an oversized image apart.
func identityDocument(c *gin.Context, maxBytes int64) (*entities.IdentityDocument, error) {
	fh, err := c.FormFile(IDCardField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, domainerrors.BadRequest("invalid multipart body")
	}
	if maxBytes > 0 && fh.Size > maxBytes {
		return nil, domainerrors.PayloadTooLarge("id card image too large")
	}

	f, err := fh.Open()
	if err != nil {
		return nil, domainerrors.BadRequest("unreadable file")
	}
	defer f.Close()

	var r io.Reader = f
	if maxBytes > 0 {
		r = io.LimitReader(f, maxBytes+1)
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, domainerrors.BadRequest("unreadable file")
	}
	return &entities.IdentityDocument{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Content:     content,
	}, nil
}

// serveFile streams a stored document. Preview renders inline, download
// names the original file. Only image and PDF types are ever rendered;
// anything else is sent as an opaque attachment.
func serveFile(c *gin.Context, f *os.File, originalName, mimeType string, download bool) {
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		response.Error(c, err)
		return
	}
	mimeType, renderable := entities.DocumentType(mimeType)
	if !renderable {
		mimeType = "application/octet-stream"
		download = true
	}
	disposition := "inline"
	if download {
		disposition = "attachment"
	}

	c.Header("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": originalName}))
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("Cache-Control", "private, no-store")
	c.DataFromReader(http.StatusOK, info.Size(), mimeType, f, nil)
}
