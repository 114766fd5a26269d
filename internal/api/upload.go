package api

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"commerce-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// multipartUpload wraps the optional "image" part of a product form. Its
// methods are nil-safe so handlers can use it without branching on
// whether a file was sent.
type multipartUpload struct {
	file multipart.File
	up   service.Upload
}

// formUpload extracts the image part of a multipart form, if present.
func formUpload(c *gin.Context) (*multipartUpload, error) {
	header, err := c.FormFile("image")
	if err == http.ErrMissingFile || err == http.ErrNotMultipart {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	file, err := header.Open()
	if err != nil {
		return nil, err
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &multipartUpload{
		file: file,
		up: service.Upload{
			FileName:    header.Filename,
			ContentType: contentType,
			Size:        header.Size,
			Body:        file,
		},
	}, nil
}

func (m *multipartUpload) upload() *service.Upload {
	if m == nil {
		return nil
	}
	return &m.up
}

func (m *multipartUpload) close() {
	if m != nil {
		_ = m.file.Close()
	}
}

// parseCreateProductForm reads product fields from a multipart form.
// Catalog endpoints take multipart instead of JSON because the image
// rides along in the same request.
func parseCreateProductForm(c *gin.Context) (*service.CreateProductRequest, error) {
	name := c.PostForm("name")
	if name == "" {
		return nil, errors.New("name is required")
	}

	price, err := decimal.NewFromString(c.PostForm("price"))
	if err != nil {
		return nil, errors.New("price must be a decimal number")
	}

	stock := 0
	if raw := c.PostForm("stock"); raw != "" {
		stock, err = strconv.Atoi(raw)
		if err != nil {
			return nil, errors.New("stock must be an integer")
		}
	}

	return &service.CreateProductRequest{Name: name, Price: price, Stock: stock}, nil
}

// parseUpdateProductForm reads the optional product fields of an edit;
// absent fields stay nil and keep their stored values.
func parseUpdateProductForm(c *gin.Context) (*service.UpdateProductRequest, error) {
	req := &service.UpdateProductRequest{}

	if name, ok := c.GetPostForm("name"); ok {
		req.Name = &name
	}
	if raw, ok := c.GetPostForm("price"); ok {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, errors.New("price must be a decimal number")
		}
		req.Price = &price
	}
	if raw, ok := c.GetPostForm("stock"); ok {
		stock, err := strconv.Atoi(raw)
		if err != nil {
			return nil, errors.New("stock must be an integer")
		}
		req.Stock = &stock
	}

	return req, nil
}
