// Package api provides the REST client for the parking backend's read models.
//
// Endpoints (relative to api.base_url, e.g. http://localhost:3000/api/v1):
//   - GET /master/gates
//   - GET /master/zones?gateId=
//   - GET /master/categories
//   - GET /admin/reports/parking-state (admin token)
//
// All endpoints return bare JSON arrays. Live updates arrive over the
// stream connection instead; see package connection.
package api
