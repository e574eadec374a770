package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	domainerrors "kailospay.backend/internal/domain/errors"
	"kailospay.backend/internal/interfaces/http/handlers"
	"kailospay.backend/internal/interfaces/http/response"
	"kailospay.backend/pkg/metrics"
)

const serviceName = "kailospay-backend"

type routeDeps struct {
	authHandler         *handlers.AuthHandler
	verificationHandler *handlers.VerificationHandler
	documentHandler     *handlers.DocumentHandler
	contractHandler     *handlers.ContractHandler
	registryHandler     *handlers.RegistryHandler
	paymentHandler      *handlers.PaymentHandler
	adminHandler        *handlers.AdminHandler

	authMiddleware  gin.HandlerFunc
	internalOrAuth  gin.HandlerFunc
	adminMiddleware gin.HandlerFunc
	signupLimit     gin.HandlerFunc
	idempotency     gin.HandlerFunc
}

func registerHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ok":      true,
			"status":  "ok",
			"service": serviceName,
		})
	})
}

func registerMetricsRoute(r *gin.Engine, m *metrics.Metrics) {
	r.GET("/metrics", gin.WrapH(m.Handler()))
}

func registerNoRoute(r *gin.Engine) {
	r.NoRoute(func(c *gin.Context) {
		response.Error(c, domainerrors.NotFound("route not found"))
	})
}

func registerAPIRoutes(r *gin.Engine, d routeDeps) {
	api := r.Group("/api")
	{
		// Public
		api.POST("/signup", d.signupLimit, d.authHandler.Signup)
		api.POST("/login", d.authHandler.Login)
		api.Any("/payments/gateway/return", d.paymentHandler.GatewayReturn)

		// 1-won accepts a service caller as well as a user token
		onewon := api.Group("/onewon", d.internalOrAuth)
		{
			onewon.POST("/start", d.verificationHandler.StartOneWon)
			onewon.POST("/confirm", d.verificationHandler.ConfirmOneWon)
		}

		authed := api.Group("", d.authMiddleware)
		{
			authed.GET("/me", d.authHandler.GetMe)
			authed.PUT("/me/profile", d.authHandler.UpdateProfile)
			authed.GET("/verifications/me", d.verificationHandler.Summary)
			authed.POST("/ekyc/idcard", d.verificationHandler.VerifyIDCard)
			authed.POST("/realname/verify", d.verificationHandler.VerifyRealname)

			authed.POST("/registry/issue", d.idempotency, d.registryHandler.Issue)
			authed.GET("/registry/status/:id", d.registryHandler.Status)
			authed.GET("/registry/download/:id", d.registryHandler.Download)

			authed.POST("/uploads", d.documentHandler.Upload)
			authed.GET("/uploads/my", d.documentHandler.ListMine)
			authed.GET("/uploads/:savedName/preview", d.documentHandler.Preview)
			authed.GET("/uploads/:savedName/download", d.documentHandler.Download)
			authed.POST("/rent/docs", d.documentHandler.UploadRent)
			authed.GET("/rent/docs/my", d.documentHandler.ListRent)

			authed.POST("/contracts", d.idempotency, d.contractHandler.Create)
			authed.GET("/contracts/my", d.contractHandler.ListMine)
			authed.GET("/contracts/:id", d.contractHandler.Get)
			authed.PUT("/contracts/:id", d.contractHandler.Update)
			authed.POST("/contracts/:id/submit", d.contractHandler.Submit)
			authed.POST("/contracts/:id/files", d.contractHandler.AddFiles)
			authed.GET("/contracts/:id/files", d.contractHandler.ListFiles)
			authed.GET("/contracts/:id/files/:fileId/preview", d.contractHandler.PreviewFile)
			authed.GET("/contracts/:id/files/:fileId/download", d.contractHandler.DownloadFile)
			authed.GET("/contracts/:id/ekyc/status", d.verificationHandler.ContractEkycStatus)

			authed.GET("/can-pay", d.paymentHandler.CanPay)
			authed.POST("/payments/create", d.paymentHandler.CreatePayment)
			authed.GET("/payments/my", d.paymentHandler.ListPayments)
			authed.POST("/payments/gateway/prepare", d.paymentHandler.Prepare)
			authed.GET("/payments/gateway/status/:orderId", d.paymentHandler.Status)
		}

		admin := api.Group("/admin", d.adminMiddleware)
		{
			admin.GET("/users", d.adminHandler.ListUsers)
			admin.DELETE("/users/:id", d.adminHandler.DeleteUser)
			admin.GET("/users/:id/verifications", d.verificationHandler.UserEvents)

			admin.GET("/uploads", d.adminHandler.ListUploads)
			admin.PATCH("/uploads/:id/review", d.adminHandler.ReviewUpload)
			admin.POST("/uploads/:id/approve", d.adminHandler.ApproveUpload)
			admin.POST("/uploads/:id/reject", d.adminHandler.RejectUpload)

			admin.GET("/contracts", d.contractHandler.AdminList)
			admin.POST("/contracts/:id/approve", d.contractHandler.AdminApprove)
			admin.POST("/contracts/:id/reject", d.contractHandler.AdminReject)

			admin.GET("/payments", d.adminHandler.ListPayments)
			admin.DELETE("/payments/:id", d.adminHandler.DeletePayment)
		}

		api.POST("/notify/alimtalk/test", d.adminMiddleware, d.adminHandler.SendAlimtalkTest)
	}
}
