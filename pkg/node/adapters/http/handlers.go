// Package http implements flashcached's admin and observability surface: a
// small JSON API for inspecting cluster state, forcing a snapshot, and
// driving the replication supervisor's slave pool, built on top of httpfx
// the same way the rest of the ambient stack's HTTP modules are.
package http

import (
	"encoding/json"
	"net/http"

	"github.com/flashcache/flashcache/pkg/ajan/httpfx"
	"github.com/flashcache/flashcache/pkg/ajan/httpfx/middlewares"
	"github.com/flashcache/flashcache/pkg/lib/cursors"
	"github.com/flashcache/flashcache/pkg/node/adapters/appcontext"
)

// RegisterRoutes wires the admin/observability endpoints onto routes,
// reading and mutating appCtx's already-initialized cluster.
func RegisterRoutes(routes *httpfx.Router, appCtx *appcontext.AppContext) {
	routes.
		Route("GET /v1/healthz", healthzHandler(appCtx)).
		HasSummary("Aggregate health").
		HasDescription("Reports the health of every registered connection: shard stores and replication links.").
		HasResponse(http.StatusOK)

	routes.
		Route("GET /v1/info", infoHandler(appCtx)).
		HasSummary("Node info").
		HasDescription("Reports node identity, shard count, and replication status.").
		HasResponse(http.StatusOK)

	routes.
		Route("GET /v1/keys", keysHandler(appCtx)).
		HasSummary("List keys").
		HasDescription("Lists live keys across every shard, paginated by cursor.").
		HasQueryParameter("cursor", "Opaque pagination cursor from a previous response").
		HasQueryParameter("limit", "Maximum number of keys to return").
		HasResponse(http.StatusOK)

	routes.
		Route("POST /v1/snapshot", snapshotHandler(appCtx)).
		HasSummary("Force snapshot").
		HasDescription("Persists every shard to disk immediately, outside its periodic schedule.").
		HasResponse(http.StatusAccepted)

	routes.
		Route("POST /v1/slaves", addSlavesHandler(appCtx)).
		HasSummary("Add slaves").
		HasDescription("Spawns n new slave processes attached to this node's replication master.").
		HasResponse(http.StatusOK)

	routes.
		Route("DELETE /v1/slaves/{id}", removeSlaveHandler(appCtx)).
		HasSummary("Stop or remove slave").
		HasDescription("Stops a slave process gracefully, or stops and forgets it entirely when ?force=true.").
		HasPathParameter("id", "Slave process ID").
		HasQueryParameter("force", "Also forget the slave instead of just stopping it").
		HasResponse(http.StatusNoContent)

	routes.
		Route("POST /v1/slaves/cleanup-zombies", cleanupZombiesHandler(appCtx)).
		HasSummary("Cleanup zombie slaves").
		HasDescription("Reaps tracked slave processes that have already exited on their own.").
		HasResponse(http.StatusOK)

	// The debug/fault-injection endpoints are operator-only: they're gated
	// to loopback callers the same way the teacher gates its internal
	// tooling, via a sub-router carrying requireLocalMiddleware.
	debug := routes.Group("/v1/debug")
	debug.Use(requireLocalMiddleware())

	debug.
		Route("POST /destroy-socket/{slaveId}", destroySocketHandler(appCtx)).
		HasSummary("Destroy replication socket").
		HasDescription("Force-closes a connected slave's replication socket without touching its process, for fault injection.").
		HasPathParameter("slaveId", "Slave ID as registered with the replication master").
		HasResponse(http.StatusNoContent)

	debug.
		Route("POST /kill-process/{slaveId}", killProcessHandler(appCtx)).
		HasSummary("Kill slave process").
		HasDescription("Sends SIGKILL to a supervised slave process, simulating an abrupt crash, for fault injection.").
		HasPathParameter("slaveId", "Slave process ID as tracked by the supervisor").
		HasResponse(http.StatusNoContent)
}

// requireLocalMiddleware rejects requests ResolveAddressMiddleware didn't
// resolve to a loopback origin, so fault-injection endpoints can't be
// driven from outside the node's own host.
func requireLocalMiddleware() httpfx.Handler {
	return func(ctx *httpfx.Context) httpfx.Result {
		origin, _ := ctx.Request.Context().Value(middlewares.ClientAddrOrigin).(string)
		if origin != "local" {
			return ctx.Results.Error(http.StatusForbidden, httpfx.WithPlainText("this endpoint only accepts loopback requests"))
		}

		return ctx.Next()
	}
}

func healthzHandler(appCtx *appcontext.AppContext) httpfx.Handler {
	return func(ctx *httpfx.Context) httpfx.Result {
		return ctx.Results.JSON(appCtx.Conn.HealthCheck(ctx.Request.Context()))
	}
}

type infoResponse struct {
	Name            string   `json:"name"`
	Env             string   `json:"env"`
	Version         string   `json:"version"`
	ReplicationRole string   `json:"replicationRole"`
	ShardKeyCounts  []int    `json:"shardKeyCounts"`
	SlaveIDs        []string `json:"slaveIds,omitempty"`
}

func infoHandler(appCtx *appcontext.AppContext) httpfx.Handler {
	return func(ctx *httpfx.Context) httpfx.Result {
		keyCounts := make([]int, len(appCtx.Shards))
		for i, shard := range appCtx.Shards {
			keyCounts[i] = shard.Len()
		}

		resp := infoResponse{
			Name:            appCtx.Config.AppName,
			Env:             appCtx.Config.AppEnv,
			Version:         appCtx.Config.AppVersion,
			ReplicationRole: appCtx.ReplicationRole,
			ShardKeyCounts:  keyCounts,
			SlaveIDs:        nil,
		}

		if len(appCtx.Masters) > 0 {
			resp.SlaveIDs = appCtx.SlaveIDs()
		}

		return ctx.Results.JSON(resp)
	}
}

func keysHandler(appCtx *appcontext.AppContext) httpfx.Handler {
	return func(ctx *httpfx.Context) httpfx.Result {
		query := ctx.Request.URL.Query()

		var offset *string
		if cursorParam := query.Get("cursor"); cursorParam != "" {
			offset = &cursorParam
		}

		limit := 0
		if limitParam := query.Get("limit"); limitParam != "" {
			parsed, err := parsePositiveInt(limitParam)
			if err != nil {
				return ctx.Results.BadRequest(httpfx.WithPlainText("limit must be a positive integer"))
			}

			limit = parsed
		}

		keys, next, err := appCtx.Router.AllKeys(cursors.NewCursor(limit, offset))
		if err != nil {
			return ctx.Results.BadRequest(httpfx.WithPlainText(err.Error()))
		}

		return ctx.Results.JSON(cursors.WrapResponseWithCursor(keys, next))
	}
}

func snapshotHandler(appCtx *appcontext.AppContext) httpfx.Handler {
	return func(ctx *httpfx.Context) httpfx.Result {
		for _, snap := range appCtx.Snapshotters {
			if err := snap.Save(); err != nil {
				return ctx.Results.Error(http.StatusInternalServerError, httpfx.WithPlainText(err.Error()))
			}
		}

		return ctx.Results.Accepted()
	}
}

type addSlavesRequest struct {
	N int `json:"n"`
}

type addSlavesResponse struct {
	IDs []string `json:"ids"`
}

func addSlavesHandler(appCtx *appcontext.AppContext) httpfx.Handler {
	return func(ctx *httpfx.Context) httpfx.Result {
		if appCtx.Supervisor == nil {
			return ctx.Results.BadRequest(httpfx.WithPlainText("replication is not enabled on this node"))
		}

		var req addSlavesRequest

		if err := json.NewDecoder(ctx.Request.Body).Decode(&req); err != nil {
			return ctx.Results.BadRequest(httpfx.WithPlainText("invalid request body: " + err.Error()))
		}

		if req.N <= 0 {
			return ctx.Results.BadRequest(httpfx.WithPlainText("n must be a positive integer"))
		}

		ids, err := appCtx.Supervisor.AddSlaves(req.N)
		for _, id := range ids {
			if trackErr := appCtx.TrackSlaveConnection(ctx.Request.Context(), id); trackErr != nil {
				appCtx.Logger.WarnContext(ctx.Request.Context(), "failed to track slave connection", "error", trackErr)
			}
		}

		if err != nil {
			return ctx.Results.Error(http.StatusInternalServerError, httpfx.WithJSON(addSlavesResponse{IDs: ids}))
		}

		return ctx.Results.JSON(addSlavesResponse{IDs: ids})
	}
}

func removeSlaveHandler(appCtx *appcontext.AppContext) httpfx.Handler {
	return func(ctx *httpfx.Context) httpfx.Result {
		if appCtx.Supervisor == nil {
			return ctx.Results.BadRequest(httpfx.WithPlainText("replication is not enabled on this node"))
		}

		id := ctx.Request.PathValue("id")
		force := ctx.Request.URL.Query().Get("force") == "true"

		if !force {
			if err := appCtx.Supervisor.StopSlave(id); err != nil {
				return ctx.Results.NotFound(httpfx.WithPlainText(err.Error()))
			}

			return ctx.Results.Ok()
		}

		if err := appCtx.Supervisor.RemoveSlave(id); err != nil {
			return ctx.Results.NotFound(httpfx.WithPlainText(err.Error()))
		}

		appCtx.UntrackSlaveConnection(ctx.Request.Context(), id)

		return ctx.Results.Ok()
	}
}

type cleanupZombiesResponse struct {
	Cleaned []string `json:"cleaned"`
}

func cleanupZombiesHandler(appCtx *appcontext.AppContext) httpfx.Handler {
	return func(ctx *httpfx.Context) httpfx.Result {
		if appCtx.Supervisor == nil {
			return ctx.Results.BadRequest(httpfx.WithPlainText("replication is not enabled on this node"))
		}

		cleaned := appCtx.Supervisor.CleanupZombies()
		for _, id := range cleaned {
			appCtx.UntrackSlaveConnection(ctx.Request.Context(), id)
		}

		if cleaned == nil {
			cleaned = []string{}
		}

		return ctx.Results.JSON(cleanupZombiesResponse{Cleaned: cleaned})
	}
}

func destroySocketHandler(appCtx *appcontext.AppContext) httpfx.Handler {
	return func(ctx *httpfx.Context) httpfx.Result {
		if len(appCtx.Masters) == 0 {
			return ctx.Results.BadRequest(httpfx.WithPlainText("replication is not enabled on this node"))
		}

		slaveID := ctx.Request.PathValue("slaveId")

		if !appCtx.DisconnectSlave(slaveID) {
			return ctx.Results.NotFound(httpfx.WithPlainText("slave not connected: " + slaveID))
		}

		return ctx.Results.Ok()
	}
}

func killProcessHandler(appCtx *appcontext.AppContext) httpfx.Handler {
	return func(ctx *httpfx.Context) httpfx.Result {
		if appCtx.Supervisor == nil {
			return ctx.Results.BadRequest(httpfx.WithPlainText("replication is not enabled on this node"))
		}

		slaveID := ctx.Request.PathValue("slaveId")

		if err := appCtx.Supervisor.KillProcess(slaveID); err != nil {
			return ctx.Results.NotFound(httpfx.WithPlainText(err.Error()))
		}

		appCtx.UntrackSlaveConnection(ctx.Request.Context(), slaveID)

		return ctx.Results.Ok()
	}
}
