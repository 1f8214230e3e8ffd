package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	p := NoopPipelineHooks{}
	p.OnLoadStart(ctx, "topology.json")
	p.OnLoadComplete(ctx, "topology.json", 12, time.Second, nil)
	p.OnLayoutComplete(ctx, 12, time.Millisecond)
	p.OnRenderStart(ctx, "3d")
	p.OnRenderComplete(ctx, "3d", time.Second, nil)

	r := NoopRefreshHooks{}
	r.OnRefreshStart(ctx, "manual")
	r.OnRefreshComplete(ctx, "manual", 3, time.Second, nil)
	r.OnRefreshDiscarded(ctx, "timer")

	a := NoopAnimationHooks{}
	a.OnLoopStart(ctx, "loop")
	a.OnLoopStop(ctx, "loop", 60, 0)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "artifact")
	c.OnCacheMiss(ctx, "artifact")
	c.OnCacheSet(ctx, "artifact", 1024)

	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "records.local", "/api/topology")
	h.OnResponse(ctx, "GET", "records.local", "/api/topology", 200, time.Second)
	h.OnError(ctx, "GET", "records.local", "/api/topology", nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Refresh().(NoopRefreshHooks); !ok {
		t.Error("Refresh() should return NoopRefreshHooks by default")
	}
	if _, ok := Animation().(NoopAnimationHooks); !ok {
		t.Error("Animation() should return NoopAnimationHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	customPipeline := &testPipelineHooks{}
	SetPipelineHooks(customPipeline)
	if Pipeline() != customPipeline {
		t.Error("SetPipelineHooks should set custom hooks")
	}

	customRefresh := &testRefreshHooks{}
	SetRefreshHooks(customRefresh)
	if Refresh() != customRefresh {
		t.Error("SetRefreshHooks should set custom hooks")
	}

	customAnimation := &testAnimationHooks{}
	SetAnimationHooks(customAnimation)
	if Animation() != customAnimation {
		t.Error("SetAnimationHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	Reset()
	if _, ok := Refresh().(NoopRefreshHooks); !ok {
		t.Error("Reset() should restore NoopRefreshHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()
	defer Reset()

	custom := &testRefreshHooks{}
	SetRefreshHooks(custom)
	SetRefreshHooks(nil)

	if Refresh() != custom {
		t.Error("SetRefreshHooks(nil) should be ignored")
	}
}

type testPipelineHooks struct{ NoopPipelineHooks }
type testRefreshHooks struct{ NoopRefreshHooks }
type testAnimationHooks struct{ NoopAnimationHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }
