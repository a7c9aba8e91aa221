package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/TomMcIver/Stock-Port/pkg/context"
)

// HeaderDocumentID lets callers correlate logs with the document being tagged
const HeaderDocumentID = "X-Document-ID"

// Context copies request metadata into the request context and echoes the
// request id back to the caller.
func Context() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			req := c.Request()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.New().String()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			ctx := req.Context()
			ctx = context.SetRequestID(ctx, requestID)
			ctx = context.SetMethod(ctx, req.Method)
			ctx = context.SetRoute(ctx, req.URL.Path)
			ctx = context.SetRemoteIP(ctx, c.RealIP())
			ctx = context.SetOrigin(ctx, context.OriginHTTP)
			if documentID := req.Header.Get(HeaderDocumentID); documentID != "" {
				ctx = context.SetDocumentID(ctx, documentID)
			}

			c.SetRequest(req.WithContext(ctx))

			return next(c)
		}
	}
}
