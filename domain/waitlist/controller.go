package waitlist

import (
	"github.com/akeren/waitlist-foundry/config/router"
	apperrors "github.com/akeren/waitlist-foundry/pkg/errors"
	"github.com/akeren/waitlist-foundry/pkg/factory"
	"github.com/akeren/waitlist-foundry/pkg/ratelimit"
)

// NewWaitlistController mounts the form endpoints. Each handler gets its own
// limiter from limiters so joins and completions are throttled separately.
func NewWaitlistController(
	service WaitlistService,
	limiters factory.RateLimiterFactory,
) *router.RESTController {

	return router.NewVersionedRESTController(
		"WaitlistController",
		"v1",
		"/waitlist",
		func(rs *router.RouterService, c *router.RESTController) {
			var joinLimiter, completeLimiter ratelimit.RateLimiter
			if limiters != nil {
				joinLimiter = limiters.CreateRateLimiter("waitlist_join")
				completeLimiter = limiters.CreateRateLimiter("waitlist_complete")
			}

			rs.AddPostHandler(c, joinLimiter, "", joinWaitlistHandler(service))
			rs.AddPostHandler(c, completeLimiter, "/complete", completeSignupHandler(service))
		},
	)
}

func joinWaitlistHandler(service WaitlistService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		var req JoinWaitlistRequest
		if result := router.BindRequest(ctx, &req); result != nil {
			return result
		}

		sub := NewSubmission()
		if _, err := service.Submit(ctx.Request.Context(), sub, &req); err != nil {
			return router.AppErrorResult(err, ToSubmissionResponse(sub))
		}

		return router.OKResult(ToSubmissionResponse(sub), "You're on the waitlist")
	}
}

func completeSignupHandler(service WaitlistService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		var req CompleteSignupRequest
		if result := router.BindRequest(ctx, &req); result != nil {
			return result
		}

		response, err := service.CompleteSignup(ctx.Request.Context(), &req)
		if err != nil {
			router.GetLogger(ctx).Warn("Signup completion failed", "error_type", apperrors.GetErrorType(err))
			return router.AppErrorResult(err, nil)
		}

		return router.OKResult(response, "Signup completed successfully")
	}
}
