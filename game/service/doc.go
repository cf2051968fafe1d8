// Package service provides the admin layer between transports and the
// session host.
//
// The service package implements:
//   - Level listing with live occupancy
//   - Session inspection and disconnection
//   - Access to the records of ended sessions
//
// Core Interfaces:
//
// AdminService is the interface the REST API and the MCP tools are built on.
// LevelCatalog and SessionHost are the narrow views of the registry and the
// session host it depends on.
//
// Usage:
//
//	admin := service.NewAdminService(reg, host)
//
//	levels, err := admin.ListLevels(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	err = admin.KickSession(ctx, sessionID)
package service
