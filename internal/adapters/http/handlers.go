package http

import (
	"fmt"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/geosurvey/internal/adapters/tabular"
	"github.com/samirrijal/geosurvey/internal/core/usecases"
)

// ImportResponse is returned after a committed batch.
type ImportResponse struct {
	Message   string `json:"message"`
	ProjectID string `json:"project_id"`
	Inserted  int    `json:"inserted"`
}

// ListProjectsHandler returns all projects, paginated.
func ListProjectsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		projects, err := deps.Projects.List(c.UserContext())
		if err != nil {
			return errInternal(c, err.Error())
		}

		pg := pageFromQuery(c)
		return writePage(c, slicePage(projects, &pg), pg)
	}
}

// GetProjectHandler returns a single project by ID.
func GetProjectHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := deps.Projects.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(p)
	}
}

// CreateProjectHandler registers a new survey project.
func CreateProjectHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in usecases.ProjectInput
		if err := c.BodyParser(&in); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		p, err := deps.Projects.Create(c.UserContext(), in)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.Status(201).JSON(p)
	}
}

// ListLocationsHandler returns a page of a project's locations.
func ListLocationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pg := pageFromQuery(c)
		locs, total, err := deps.Locations.List(c.UserContext(), c.Params("id"), pg.Offset, pg.Limit)
		if err != nil {
			return writeDomainError(c, err)
		}
		pg.Total = total
		return writePage(c, locs, pg)
	}
}

// LocationMapHandler returns markers, bounding polygon, and extent for a project.
func LocationMapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		view, err := deps.Locations.MapView(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(view)
	}
}

// CreateLocationHandler adds one location to a project.
func CreateLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in usecases.LocationInput
		if err := c.BodyParser(&in); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		loc, err := deps.Locations.Create(c.UserContext(), c.Params("id"), in)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.Status(201).JSON(loc)
	}
}

// UpdateLocationHandler edits an existing location.
func UpdateLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in usecases.LocationInput
		if err := c.BodyParser(&in); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		loc, err := deps.Locations.Update(c.UserContext(), c.Params("id"), in)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(loc)
	}
}

// ExportLocationsHandler downloads a project's locations as csv or xlsx.
func ExportLocationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		format := strings.ToLower(c.Query("format", tabular.FormatCSV))
		data, err := deps.Locations.Export(c.UserContext(), c.Params("id"), format)
		if err != nil {
			return writeDomainError(c, err)
		}
		c.Set("Cache-Control", "no-store")
		return sendFile(c, format, "locations", data)
	}
}

// TemplateHandler downloads an empty import sheet.
func TemplateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		format := strings.ToLower(c.Query("format", tabular.FormatCSV))
		data, err := deps.Locations.Template(format)
		if err != nil {
			return writeDomainError(c, err)
		}
		return sendFile(c, format, "locations_template", data)
	}
}

// ImportLocationsHandler accepts a multipart "file" upload and commits its
// rows as one batch.
func ImportLocationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name, data, err := readUpload(c, deps.MaxUploadBytes)
		if err != nil {
			return writeDomainError(c, err)
		}

		res, err := deps.Imports.ImportFile(c.UserContext(), c.Params("id"), name, data)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.Status(201).JSON(ImportResponse{
			Message:   "Successfully inserted locations",
			ProjectID: res.ProjectID,
			Inserted:  res.Inserted,
		})
	}
}

// PreviewImportHandler parses and validates an upload without writing it.
func PreviewImportHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name, data, err := readUpload(c, deps.MaxUploadBytes)
		if err != nil {
			return writeDomainError(c, err)
		}

		preview, err := deps.Imports.Preview(c.UserContext(), c.Params("id"), name, data)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(preview)
	}
}

// uploadError is a rejected multipart upload.
type uploadError struct {
	status int
	msg    string
}

func (e *uploadError) Error() string { return e.msg }

// readUpload returns the uploaded file's name and contents.
func readUpload(c *fiber.Ctx, maxBytes int64) (string, []byte, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return "", nil, &uploadError{400, `multipart field "file" is required`}
	}
	if maxBytes > 0 && fh.Size > maxBytes {
		return "", nil, &uploadError{413, fmt.Sprintf("file exceeds %d bytes", maxBytes)}
	}

	f, err := fh.Open()
	if err != nil {
		return "", nil, &uploadError{400, "unable to open upload"}
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, &uploadError{400, "unable to read upload"}
	}
	return fh.Filename, data, nil
}

func sendFile(c *fiber.Ctx, format, base string, data []byte) error {
	c.Set("Content-Type", tabular.ContentType(format))
	c.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, base, format))
	return c.Send(data)
}
