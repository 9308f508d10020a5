package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/inkdesk/inkdesk/internal/config"
	"github.com/inkdesk/inkdesk/internal/middleware"
	"github.com/inkdesk/inkdesk/internal/modules/handler"
	"github.com/inkdesk/inkdesk/internal/modules/serializer"
	"github.com/inkdesk/inkdesk/internal/telemetry"
)

type RouterDeps struct {
	Config           *config.Config
	DB               *gorm.DB
	Log              *zap.Logger
	AgreementHandler *handler.AgreementHandler
	SigningHandler   *handler.SigningHandler
}

func NewRouter(d RouterDeps) *gin.Engine {
	// Initialize logger for serializer package
	serializer.SetLogger(d.Log)

	r := gin.New()
	r.Use(gin.Recovery())

	if d.Config.Telemetry.Enabled && d.Config.Telemetry.OtlpEndpoint != "" {
		r.Use(telemetry.GinMiddleware(d.Config.App.Name))
	}

	r.Use(middleware.ZapLogger(d.Log))

	// health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, serializer.Response{Msg: "ok"}) })

	v1 := r.Group("/api/v1")

	// Public signing surface. Links authenticate by token, never by bearer key.
	sign := v1.Group("/agreements/sign")
	{
		sign.GET("/:token", d.SigningHandler.Resolve)
		sign.POST("/:token", d.SigningHandler.Submit)
		sign.PUT("/:token", d.SigningHandler.Update)
	}

	owner := v1.Group("")
	{
		owner.Use(middleware.OwnerAuth(d.Config, d.DB))

		agreement := owner.Group("/agreements")
		{
			agreement.POST("", d.AgreementHandler.CreateAgreement)
			agreement.GET("/:agreement_id", d.AgreementHandler.GetAgreement)
			agreement.PUT("/:agreement_id", d.AgreementHandler.UpdateAgreement)
			agreement.DELETE("/:agreement_id", d.AgreementHandler.DeleteAgreement)
			agreement.GET("/project/:project_id", d.AgreementHandler.GetAgreementByProject)

			agreement.POST("/:agreement_id/send", d.SigningHandler.Send)
			agreement.GET("/:agreement_id/links", d.SigningHandler.ListLinks)
			agreement.POST("/:agreement_id/signature", d.AgreementHandler.SignAsProvider)

			agreement.GET("/:agreement_id/preview", d.AgreementHandler.Preview)
			agreement.GET("/:agreement_id/pdf", d.AgreementHandler.GeneratePDF)
		}

		project := owner.Group("/projects")
		{
			project.PUT("/:project_id/clients", d.AgreementHandler.ReplaceRoster)
		}
	}
	return r
}
