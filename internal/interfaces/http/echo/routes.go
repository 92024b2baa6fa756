package echo

import e "github.com/labstack/echo/v4"

func RegisterRoutes(server *e.Echo, migrationHandler *MigrationHandler, accountHandler *AccountHandler) {
	v1 := server.Group("/api/v1")

	if migrationHandler != nil {
		v1.POST("/migrations", migrationHandler.StartMigration)
		v1.GET("/migrations/:id", migrationHandler.GetMigration)
		v1.POST("/migrations/:id/repair-links", migrationHandler.RepairLinks)
	}

	if accountHandler != nil {
		v1.POST("/auth/login", accountHandler.Login)
		v1.POST("/auth/change-password", accountHandler.ChangePassword, RequireToken(accountHandler.tokens))
	}
}
