package router

import (
	"fmt"
	"net/http"
	"path"

	"github.com/akeren/waitlist-foundry/pkg/ratelimit"
	"github.com/gin-gonic/gin"
)

type RequestContext = gin.Context

type MiddlewareFunc = gin.HandlerFunc

type HandlerFunction func(*RequestContext) *ServiceResult

// RESTController groups handlers under one mount point. prepare registers
// the handlers when the controller is mounted.
type RESTController struct {
	name         string
	mountPoint   string
	version      string
	handlerCount int
	prepare      func(*RouterService, *RESTController)
}

func NewRESTController(name, mountPoint string, prepare func(*RouterService, *RESTController)) *RESTController {
	return &RESTController{
		name:       name,
		mountPoint: path.Join("/", mountPoint),
		prepare:    prepare,
	}
}

// NewVersionedRESTController mounts the controller below /<version>.
func NewVersionedRESTController(name, version, mountPoint string, prepare func(*RouterService, *RESTController)) *RESTController {
	return &RESTController{
		name:       name,
		mountPoint: path.Join("/", version, mountPoint),
		version:    version,
		prepare:    prepare,
	}
}

// route is the absolute path of relativePath under the controller.
func (controller *RESTController) route(relativePath string) string {
	return path.Join(controller.mountPoint, relativePath)
}

// RateLimitWith applies limiter to every handler of the controller that has
// no limiter of its own.
func (controller *RESTController) RateLimitWith(routerService *RouterService, limiter ratelimit.RateLimiter) *RESTController {
	routerService.setOverride(controller.mountPoint, limiter)
	return controller
}

func routeKey(method, route string) string {
	return method + " " + route
}

func (routerService *RouterService) setOverride(key string, limiter ratelimit.RateLimiter) {
	if limiter == nil {
		return
	}
	if _, taken := routerService.rateLimitOverrides[key]; taken {
		panic(fmt.Sprintf("a rate limiter is already registered for %q", key))
	}
	routerService.rateLimitOverrides[key] = limiter
}

func (routerService *RouterService) AddPostHandler(controller *RESTController, limiter ratelimit.RateLimiter, path string, handler HandlerFunction, middlewares ...MiddlewareFunc) {
	routerService.addHandler(http.MethodPost, controller, limiter, path, handler, middlewares)
}

func (routerService *RouterService) AddGetHandler(controller *RESTController, limiter ratelimit.RateLimiter, path string, handler HandlerFunction, middlewares ...MiddlewareFunc) {
	routerService.addHandler(http.MethodGet, controller, limiter, path, handler, middlewares)
}

func (routerService *RouterService) AddHeadHandler(controller *RESTController, limiter ratelimit.RateLimiter, path string, handler HandlerFunction, middlewares ...MiddlewareFunc) {
	routerService.addHandler(http.MethodHead, controller, limiter, path, handler, middlewares)
}

// addHandler panics when two controllers claim the same method and route.
func (routerService *RouterService) addHandler(method string, controller *RESTController, limiter ratelimit.RateLimiter, relativePath string, handler HandlerFunction, middlewares []MiddlewareFunc) {
	route := controller.route(relativePath)
	key := routeKey(method, route)

	if owner, taken := routerService.handlerToControllerMap[key]; taken {
		panic(fmt.Sprintf("%s is already handled by controller %q", key, owner.name))
	}
	routerService.handlerToControllerMap[key] = controller
	routerService.setOverride(key, limiter)
	controller.handlerCount++

	routerService.engine.Handle(method, route, append(middlewares, wrapHandler(handler))...)
	routerService.logger.Debug("Handler registered", "method", method, "path", route)
}

func wrapHandler(handler HandlerFunction) MiddlewareFunc {
	return func(c *RequestContext) {
		result := handler(c)
		if result == nil {
			result = ErrorResult(http.StatusInternalServerError, "A handler returned an undefined result. This typically indicates a bug in a handler's implementation.", nil)
		}

		// Results carry per-visitor state and must not be cached by proxies.
		c.Header("Cache-Control", "no-store")
		c.JSON(result.StatusCode, result)
	}
}
