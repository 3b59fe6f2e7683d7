package main

import (
	"github.com/gin-gonic/gin"

	"frontdesk/internal/bridge"
	"frontdesk/internal/httpapi"
	"frontdesk/internal/rbac"
	"frontdesk/internal/telephony"
)

type routeDeps struct {
	gateway *telephony.Gateway
	bridge  *bridge.Handler
	api     httpapi.Handlers

	authMW      gin.HandlerFunc
	signatureMW gin.HandlerFunc
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic.
func registerRoutes(r *gin.Engine, d routeDeps) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Carrier webhooks. Signed form posts only; the media-stream socket is a
	// websocket upgrade and carries no form signature.
	webhooks := r.Group("")
	webhooks.Use(d.signatureMW)
	{
		webhooks.POST(telephony.IncomingPath, d.gateway.HandleIncoming)
		webhooks.POST(telephony.StatusPath, d.gateway.HandleStatus)
		webhooks.POST(telephony.RecordingPath, d.gateway.HandleRecording)
		webhooks.POST(telephony.TranscriptionPath, d.gateway.HandleTranscription)
		webhooks.POST(telephony.TransferStatusPath, d.gateway.HandleTransferStatus)
		webhooks.POST(telephony.StaffAnsweredPath, d.gateway.HandleStaffAnswered)
		webhooks.POST(telephony.WhisperPath, d.gateway.HandleWhisper)
	}
	r.GET(telephony.StreamPath, d.bridge.Stream)

	// Staff-facing read API.
	v1 := r.Group("/v1")
	v1.Use(d.authMW)
	v1.Use(rbac.RequireAnyRole(rbac.RoleAdmin, rbac.RoleStaff))
	{
		v1.GET("/calls", d.api.ListCalls)
		v1.GET("/calls/:call_id", d.api.GetCall)
		v1.GET("/reports/calls", d.api.CallsReport)
		v1.POST("/staff/:staff_id/away", d.api.MarkStaffAway)

		admin := v1.Group("")
		admin.Use(rbac.RequireAnyRole(rbac.RoleAdmin))
		{
			admin.POST("/routing/override", d.api.SetOverride)
			admin.DELETE("/routing/override", d.api.ClearOverride)
		}
	}
}
