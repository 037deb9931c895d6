package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Society Procurement API",
        "description": "Procurement authorization core for residents' societies",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "PurchaseRequests", "description": "Purchase request lifecycle"},
        {"name": "RFQs", "description": "Requests for quotation and comparative statements"},
        {"name": "VendorPortal", "description": "Public token-authenticated vendor endpoints"},
        {"name": "PurchaseOrders", "description": "Purchase orders and the three-level approval chain"},
        {"name": "NFAs", "description": "Notes for approval with quorum-based committee voting"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Degraded"}
                }
            }
        },
        "/purchase-requests": {
            "get": {
                "tags": ["PurchaseRequests"],
                "summary": "List purchase requests",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "category", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["PurchaseRequests"],
                "summary": "Create a purchase request",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreatePurchaseRequestRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/purchase-requests/{id}": {
            "get": {
                "tags": ["PurchaseRequests"],
                "summary": "Get one purchase request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["PurchaseRequests"],
                "summary": "Cancel a purchase request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/purchase-requests/{id}/open": {
            "post": {
                "tags": ["PurchaseRequests"],
                "summary": "Open a draft purchase request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/purchase-requests/{id}/send-rfq": {
            "post": {
                "tags": ["PurchaseRequests"],
                "summary": "Send an RFQ to all approved vendors in the category",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SendRFQRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "No approved vendors in category"}
                }
            }
        },
        "/rfqs/{id}": {
            "get": {
                "tags": ["RFQs"],
                "summary": "Get an RFQ with its vendor invites",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/rfqs/{id}/quotations": {
            "get": {
                "tags": ["RFQs"],
                "summary": "List an RFQ's quotations ordered by rank",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/rfqs/{id}/comparative-statement": {
            "get": {
                "tags": ["RFQs"],
                "summary": "Download the comparative statement as CSV or PDF",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File download"}
                }
            }
        },
        "/vendor-portal/{token}": {
            "get": {
                "tags": ["VendorPortal"],
                "summary": "View the RFQ an invite token grants access to",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid token"}
                }
            }
        },
        "/vendor-portal/quotations": {
            "post": {
                "tags": ["VendorPortal"],
                "summary": "Submit a quotation against an invite token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitQuotationRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid token"},
                    "409": {"description": "Deadline passed"}
                }
            }
        },
        "/purchase-orders": {
            "post": {
                "tags": ["PurchaseOrders"],
                "summary": "Create a purchase order from a ranked quotation",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreatePurchaseOrderRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Justification required for non-rank-1 selection"}
                }
            }
        },
        "/purchase-orders/{id}": {
            "get": {
                "tags": ["PurchaseOrders"],
                "summary": "Get one purchase order",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/purchase-orders/{id}/document": {
            "get": {
                "tags": ["PurchaseOrders"],
                "summary": "Download the printable purchase order PDF",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF document"}
                }
            }
        },
        "/purchase-orders/{id}/approve": {
            "post": {
                "tags": ["PurchaseOrders"],
                "summary": "Approve at the level the caller's role maps to",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Wrong approval level or state conflict"}
                }
            }
        },
        "/purchase-orders/{id}/issue": {
            "post": {
                "tags": ["PurchaseOrders"],
                "summary": "Issue a fully approved purchase order",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/purchase-orders/{id}/deliver": {
            "post": {
                "tags": ["PurchaseOrders"],
                "summary": "Record goods receipt",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/purchase-orders/{id}/cancel": {
            "post": {
                "tags": ["PurchaseOrders"],
                "summary": "Cancel a purchase order that has not been issued",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/nfas": {
            "post": {
                "tags": ["NFAs"],
                "summary": "Create a draft note for approval",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateNFARequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/nfas/{id}": {
            "get": {
                "tags": ["NFAs"],
                "summary": "Get one NFA with items and competing quotes",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/nfas/{id}/approvals": {
            "get": {
                "tags": ["NFAs"],
                "summary": "List the vote trail for an NFA",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/nfas/{id}/submit": {
            "post": {
                "tags": ["NFAs"],
                "summary": "Submit a draft NFA for committee voting",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/nfas/{id}/vote": {
            "post": {
                "tags": ["NFAs"],
                "summary": "Cast a committee member's vote",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CastVoteRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate vote or not open for voting"}
                }
            }
        },
        "/nfas/{id}/treasurer-decision": {
            "post": {
                "tags": ["NFAs"],
                "summary": "Record the trailing treasurer decision",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TreasurerDecisionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreatePurchaseRequestRequest": {
            "type": "object",
            "required": ["title", "category", "items"],
            "properties": {
                "title": {"type": "string"},
                "category": {"type": "string"},
                "priority": {"type": "string"},
                "draft": {"type": "boolean"},
                "items": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/RequestItemInput"}
                }
            }
        },
        "RequestItemInput": {
            "type": "object",
            "required": ["description", "quantity", "estimatedPrice"],
            "properties": {
                "description": {"type": "string"},
                "quantity": {"type": "integer"},
                "unit": {"type": "string"},
                "estimatedPrice": {"type": "string", "example": "1500.00"}
            }
        },
        "SendRFQRequest": {
            "type": "object",
            "properties": {
                "deadline": {"type": "string", "format": "date-time"},
                "terms": {"type": "string"}
            }
        },
        "SubmitQuotationRequest": {
            "type": "object",
            "required": ["token", "items"],
            "properties": {
                "token": {"type": "string"},
                "terms": {"type": "string"},
                "items": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/QuoteItemInput"}
                }
            }
        },
        "QuoteItemInput": {
            "type": "object",
            "required": ["description", "quantity", "unitPrice", "gstRate"],
            "properties": {
                "description": {"type": "string"},
                "quantity": {"type": "integer"},
                "unitPrice": {"type": "string", "example": "1450.50"},
                "gstRate": {"type": "string", "example": "18"}
            }
        },
        "CreatePurchaseOrderRequest": {
            "type": "object",
            "required": ["rfqId", "quotationId"],
            "properties": {
                "rfqId": {"type": "string"},
                "quotationId": {"type": "string"},
                "approvalRemark": {"type": "string"}
            }
        },
        "CastVoteRequest": {
            "type": "object",
            "required": ["action"],
            "properties": {
                "action": {"type": "string", "enum": ["APPROVED", "REJECTED"]},
                "remarks": {"type": "string"}
            }
        },
        "TreasurerDecisionRequest": {
            "type": "object",
            "required": ["action"],
            "properties": {
                "action": {"type": "string", "enum": ["APPROVED", "REJECTED"]},
                "remarks": {"type": "string"}
            }
        },
        "CreateNFARequest": {
            "type": "object",
            "required": ["title", "items"],
            "properties": {
                "title": {"type": "string"},
                "items": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/NFAItemInput"}
                }
            }
        },
        "NFAItemInput": {
            "type": "object",
            "required": ["description", "quantity", "gstRate", "quotes"],
            "properties": {
                "description": {"type": "string"},
                "quantity": {"type": "integer"},
                "gstRate": {"type": "string"},
                "selectedQuote": {"type": "integer"},
                "quotes": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/NFAItemQuoteInput"}
                }
            }
        },
        "NFAItemQuoteInput": {
            "type": "object",
            "required": ["vendorId", "unitPrice"],
            "properties": {
                "vendorId": {"type": "string"},
                "unitPrice": {"type": "string"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
