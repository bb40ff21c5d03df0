package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/geosurvey/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	projectType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Project",
		Fields: graphql.Fields{
			"id":           &graphql.Field{Type: graphql.String},
			"project_code": &graphql.Field{Type: graphql.String},
			"name":         &graphql.Field{Type: graphql.String},
			"utm_zone":     &graphql.Field{Type: graphql.Int},
			"utm_band":     &graphql.Field{Type: graphql.String},
			"created_at":   &graphql.Field{Type: graphql.DateTime},
		},
	})

	locationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Location",
		Fields: graphql.Fields{
			"id":            &graphql.Field{Type: graphql.String},
			"project_id":    &graphql.Field{Type: graphql.String},
			"location_name": &graphql.Field{Type: graphql.String},
			"x":             &graphql.Field{Type: graphql.Float},
			"y":             &graphql.Field{Type: graphql.Float},
			"remarks":       &graphql.Field{Type: graphql.String},
			"created_at":    &graphql.Field{Type: graphql.DateTime},
		},
	})

	markerType := graphql.NewObject(graphql.ObjectConfig{
		Name: "MapMarker",
		Fields: graphql.Fields{
			"location_id": &graphql.Field{Type: graphql.String},
			"name":        &graphql.Field{Type: graphql.String},
			"position":    &graphql.Field{Type: geoPointType},
		},
	})

	failureType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ConversionFailure",
		Fields: graphql.Fields{
			"location_id": &graphql.Field{Type: graphql.String},
			"name":        &graphql.Field{Type: graphql.String},
			"reason":      &graphql.Field{Type: graphql.String},
		},
	})

	mapViewType := graphql.NewObject(graphql.ObjectConfig{
		Name: "LocationMap",
		Fields: graphql.Fields{
			"project_id": &graphql.Field{Type: graphql.String},
			"markers":    &graphql.Field{Type: graphql.NewList(markerType)},
			"failures":   &graphql.Field{Type: graphql.NewList(failureType)},
			"polygon": &graphql.Field{
				Type:        graphql.NewList(geoPointType),
				Description: "Closed five-vertex bounding polygon; null when the project has no points",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					v, ok := p.Source.(*domain.MapView)
					if !ok || v.Polygon == nil {
						return nil, nil
					}
					return v.Polygon[:], nil
				},
			},
			"width_m": &graphql.Field{
				Type: graphql.Float,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if v, ok := p.Source.(*domain.MapView); ok && v.Extent != nil {
						return v.Extent.WidthMeters, nil
					}
					return nil, nil
				},
			},
			"height_m": &graphql.Field{
				Type: graphql.Float,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if v, ok := p.Source.(*domain.MapView); ok && v.Extent != nil {
						return v.Extent.HeightMeters, nil
					}
					return nil, nil
				},
			},
		},
	})

	importResultType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ImportResult",
		Fields: graphql.Fields{
			"project_id": &graphql.Field{Type: graphql.String},
			"inserted":   &graphql.Field{Type: graphql.Int},
			"at":         &graphql.Field{Type: graphql.DateTime},
		},
	})

	rowInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "LocationRowInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"project_code":  &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"location_name": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"x":             &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"y":             &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"remarks":       &graphql.InputObjectFieldConfig{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"projects": &graphql.Field{
				Type:        graphql.NewList(projectType),
				Description: "List all survey projects",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Projects.List(p.Context)
				},
			},
			"project": &graphql.Field{
				Type:        projectType,
				Description: "Get a project by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Projects.Get(p.Context, p.Args["id"].(string))
				},
			},
			"locations": &graphql.Field{
				Type:        graphql.NewList(locationType),
				Description: "Locations of a project in insertion order",
				Args: graphql.FieldConfigArgument{
					"project_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"offset":     &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":      &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 100},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					locs, _, err := deps.Locations.List(p.Context,
						p.Args["project_id"].(string), p.Args["offset"].(int), p.Args["limit"].(int))
					return locs, err
				},
			},
			"locationMap": &graphql.Field{
				Type:        mapViewType,
				Description: "Map markers and bounding polygon for a project",
				Args: graphql.FieldConfigArgument{
					"project_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Locations.MapView(p.Context, p.Args["project_id"].(string))
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"importLocations": &graphql.Field{
				Type:        importResultType,
				Description: "Validate and commit rows as one all-or-nothing batch",
				Args: graphql.FieldConfigArgument{
					"project_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"rows":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(rowInput)))},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					rows, _ := p.Args["rows"].([]interface{})
					candidates := make([]domain.ImportCandidate, 0, len(rows))
					for i, r := range rows {
						m, ok := r.(map[string]interface{})
						if !ok {
							return nil, fmt.Errorf("rows[%d]: not an object", i)
						}
						candidates = append(candidates, domain.ImportCandidate{
							Row:          i + 1,
							ProjectCode:  argString(m, "project_code"),
							LocationName: argString(m, "location_name"),
							X:            argString(m, "x"),
							Y:            argString(m, "y"),
							Remarks:      argString(m, "remarks"),
						})
					}
					return deps.Imports.Import(p.Context, p.Args["project_id"].(string), candidates)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

func argString(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
