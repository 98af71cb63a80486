// Package docs registers the chasopis OpenAPI document with swag.
//
// @title Chasopis API
// @version 1.0
// @description Articles, faceted search, reader engagement and first-party analytics.
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
// @host localhost:8080
// @BasePath /
package docs

import "github.com/swaggo/swag"

func init() {
	swag.Register(swag.Name, &swag.Spec{
		InfoInstanceName: "swagger",
		SwaggerTemplate:  docTemplate,
	})
}

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Chasopis API",
        "description": "Articles, faceted search, reader engagement and first-party analytics.",
        "version": "1.0.0",
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        }
    },
    "host": "localhost:8080",
    "basePath": "/",
    "schemes": ["http", "https"],
    "consumes": ["application/json"],
    "produces": ["application/json"],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Health"],
                "summary": "Health check",
                "operationId": "healthCheck",
                "responses": {
                    "200": {"description": "Service and database are healthy"},
                    "503": {"description": "Database unreachable"}
                }
            }
        },
        "/api/v1/articles": {
            "get": {
                "tags": ["Articles"],
                "summary": "List one page of articles",
                "description": "Returns at most 16 articles. Facet values are OR-ed within a facet and AND-ed across facets.",
                "operationId": "listArticles",
                "parameters": [
                    {"name": "skip", "in": "query", "type": "integer", "minimum": 0, "description": "Number of articles to skip"},
                    {"name": "search", "in": "query", "type": "string", "maxLength": 200, "description": "Free text matched against title, author, places and subjects"},
                    {"name": "sort", "in": "query", "type": "string", "enum": ["newest", "oldest", "views", "likes"], "description": "Unknown values sort by newest"},
                    {"name": "section", "in": "query", "type": "integer", "description": "Section id"},
                    {"name": "author", "in": "query", "type": "array", "items": {"type": "string"}, "collectionFormat": "multi"},
                    {"name": "place", "in": "query", "type": "array", "items": {"type": "string"}, "collectionFormat": "multi"},
                    {"name": "subject", "in": "query", "type": "array", "items": {"type": "string"}, "collectionFormat": "multi"},
                    {"name": "tag", "in": "query", "type": "array", "items": {"type": "string"}, "collectionFormat": "multi"}
                ],
                "responses": {
                    "200": {"description": "Article page", "schema": {"$ref": "#/definitions/ArticleList"}},
                    "400": {"description": "Invalid query parameters", "schema": {"$ref": "#/definitions/Error"}},
                    "500": {"description": "Internal server error", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/api/v1/articles/search": {
            "post": {
                "tags": ["Articles"],
                "summary": "List one page of articles from a structured query",
                "operationId": "searchArticles",
                "parameters": [
                    {"name": "query", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SearchQuery"}}
                ],
                "responses": {
                    "200": {"description": "Article page", "schema": {"$ref": "#/definitions/ArticleList"}},
                    "400": {"description": "Invalid request body", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/api/v1/articles/{id}": {
            "get": {
                "tags": ["Articles"],
                "summary": "Get an article and count the view",
                "operationId": "getArticle",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Article"},
                    "400": {"description": "Invalid id", "schema": {"$ref": "#/definitions/Error"}},
                    "404": {"description": "Article not found", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/api/v1/articles/{id}/comments": {
            "get": {
                "tags": ["Engagement"],
                "summary": "List comments, newest first",
                "operationId": "listComments",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Comments"}
                }
            },
            "post": {
                "tags": ["Engagement"],
                "summary": "Add a comment",
                "operationId": "addComment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "comment", "in": "body", "required": true, "schema": {
                        "type": "object",
                        "properties": {
                            "author": {"type": "string", "maxLength": 100},
                            "body": {"type": "string", "maxLength": 2000}
                        }
                    }}
                ],
                "responses": {
                    "201": {"description": "Comment stored"},
                    "400": {"description": "Empty or oversized comment", "schema": {"$ref": "#/definitions/Error"}},
                    "404": {"description": "Article not found", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/api/v1/articles/{id}/like": {
            "post": {
                "tags": ["Engagement"],
                "summary": "Like an article once per session",
                "operationId": "likeArticle",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Current like count"},
                    "404": {"description": "Article not found", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/api/v1/facets": {
            "get": {
                "tags": ["Articles"],
                "summary": "Selectable sections, authors, places, subjects and tags",
                "operationId": "getFacets",
                "responses": {
                    "200": {"description": "Facet values"}
                }
            }
        },
        "/api/v1/visits": {
            "post": {
                "tags": ["Analytics"],
                "summary": "Record a page view",
                "description": "The visit is queued and geolocated asynchronously.",
                "operationId": "logVisit",
                "parameters": [
                    {"name": "visit", "in": "body", "required": true, "schema": {
                        "type": "object",
                        "required": ["path"],
                        "properties": {"path": {"type": "string"}}
                    }}
                ],
                "responses": {
                    "202": {"description": "Visit accepted"},
                    "400": {"description": "Missing path", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/api/v1/admin/dashboard": {
            "get": {
                "tags": ["Admin"],
                "summary": "Analytics dashboard",
                "operationId": "getDashboard",
                "parameters": [
                    {"name": "range", "in": "query", "type": "string", "enum": ["24h", "7d", "30d"], "default": "24h"},
                    {"name": "since", "in": "query", "type": "string", "format": "date-time", "description": "Overrides range"}
                ],
                "responses": {
                    "200": {"description": "Dashboard", "schema": {"$ref": "#/definitions/Dashboard"}},
                    "400": {"description": "Invalid range", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/api/v1/admin/stats": {
            "get": {
                "tags": ["Admin"],
                "summary": "Content store totals",
                "operationId": "getStats",
                "responses": {
                    "200": {"description": "Totals"}
                }
            }
        },
        "/api/v1/admin/import": {
            "get": {
                "tags": ["Admin"],
                "summary": "Feed importer status",
                "operationId": "getImportStatus",
                "responses": {
                    "200": {"description": "Importer state and last run per section"}
                }
            },
            "post": {
                "tags": ["Admin"],
                "summary": "Run a feed import now",
                "operationId": "runImport",
                "parameters": [
                    {"name": "section", "in": "query", "type": "string", "description": "Import only this section"}
                ],
                "responses": {
                    "200": {"description": "Import results per section"},
                    "400": {"description": "Unknown section", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        }
    },
    "definitions": {
        "Error": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "Option": {
            "type": "object",
            "properties": {
                "label": {"type": "string"},
                "value": {"type": "string"}
            }
        },
        "SearchQuery": {
            "type": "object",
            "properties": {
                "skip": {"type": "integer"},
                "search": {"type": "string"},
                "sortBy": {"type": "string", "enum": ["newest", "oldest", "views", "likes"]},
                "filters": {
                    "type": "object",
                    "properties": {
                        "sectionId": {"type": "integer"},
                        "authors": {"type": "array", "items": {"$ref": "#/definitions/Option"}},
                        "places": {"type": "array", "items": {"$ref": "#/definitions/Option"}},
                        "subjects": {"type": "array", "items": {"$ref": "#/definitions/Option"}},
                        "tags": {"type": "array", "items": {"$ref": "#/definitions/Option"}}
                    }
                }
            }
        },
        "ArticleList": {
            "type": "object",
            "properties": {
                "articles": {"type": "array", "items": {"type": "object"}},
                "count": {"type": "integer"},
                "skip": {"type": "integer"},
                "has_more": {"type": "boolean"}
            }
        },
        "Dashboard": {
            "type": "object",
            "properties": {
                "since": {"type": "string", "format": "date-time"},
                "total": {"type": "integer"},
                "uniqueSessions": {"type": "integer"},
                "byCity": {"type": "array", "items": {"type": "array", "items": {}}},
                "popularPages": {"type": "array", "items": {"type": "object"}},
                "newComments": {"type": "integer"},
                "topLiked": {"type": "array", "items": {"type": "object"}},
                "topCommented": {"type": "array", "items": {"type": "object"}},
                "points": {"type": "array", "items": {"type": "object"}},
                "timeline": {"type": "object", "additionalProperties": {"type": "integer"}}
            }
        }
    },
    "tags": [
        {"name": "Health", "description": "Liveness"},
        {"name": "Articles", "description": "Listing, search and detail"},
        {"name": "Engagement", "description": "Likes and comments"},
        {"name": "Analytics", "description": "Visit logging"},
        {"name": "Admin", "description": "Dashboard, totals and imports"}
    ]
}`
