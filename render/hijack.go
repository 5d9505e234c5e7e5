package render

import (
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// configToProto maps config resource type names to rod protocol types.
var configToProto = map[string]proto.NetworkResourceType{
	"Image":      proto.NetworkResourceTypeImage,
	"Stylesheet": proto.NetworkResourceTypeStylesheet,
	"Font":       proto.NetworkResourceTypeFont,
	"Media":      proto.NetworkResourceTypeMedia,
}

// configToPlaywright maps the same names to playwright resource types.
var configToPlaywright = map[string]string{
	"Image":      "image",
	"Stylesheet": "stylesheet",
	"Font":       "font",
	"Media":      "media",
}

// setupHijack installs a request interceptor that fails requests for the
// blocked resource types. Scripts are never blockable: quiz pages compute
// their content client-side.
//
// Returns the running router so the caller can stop it, or nil when there
// is nothing to block.
func setupHijack(p *rod.Page, blockedTypes []string) *rod.HijackRouter {
	blocked := make(map[proto.NetworkResourceType]struct{}, len(blockedTypes))
	for _, name := range blockedTypes {
		if rt, ok := configToProto[name]; ok {
			blocked[rt] = struct{}{}
		}
	}
	if len(blocked) == 0 {
		return nil
	}

	router := p.HijackRequests()
	_ = router.Add("*", "", func(ctx *rod.Hijack) {
		if _, shouldBlock := blocked[ctx.Request.Type()]; shouldBlock {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// router.Run blocks until router.Stop.
	go router.Run()

	return router
}

func blockedPlaywrightTypes(blockedTypes []string) map[string]struct{} {
	out := make(map[string]struct{}, len(blockedTypes))
	for _, name := range blockedTypes {
		if rt, ok := configToPlaywright[name]; ok {
			out[rt] = struct{}{}
		}
	}
	return out
}
