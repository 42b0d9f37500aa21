package access

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"safesphere/internal/model"
)

// Area is a functional area of the dashboard.
type Area string

const (
	AreaMyQR          Area = "myQr"
	AreaAttendance    Area = "attendance"
	AreaIncidents     Area = "incidents"
	AreaNotifications Area = "notifications"
	AreaScan          Area = "scan"
	AreaVisitors      Area = "visitors"
	AreaLogs          Area = "logs"
	AreaReports       Area = "reports"
)

var (
	baseline   = []Area{AreaMyQR, AreaAttendance, AreaIncidents, AreaNotifications}
	privileged = []Area{AreaScan, AreaVisitors, AreaLogs, AreaReports}
)

// Privileged reports whether role sees the scan, visitor, log and report areas.
func Privileged(role model.Role) bool {
	return role == model.RoleAdmin || role == model.RoleSecurity
}

// Areas returns the areas visible to role.
func Areas(role model.Role) []Area {
	out := append([]Area(nil), baseline...)
	if Privileged(role) {
		out = append(out, privileged...)
	}
	return out
}

// Can reports whether role may use area.
func Can(role model.Role, area Area) bool {
	for _, a := range Areas(role) {
		if a == area {
			return true
		}
	}
	return false
}

// RequireArea rejects requests whose session user cannot use area. It
// expects auth.SessionAuth to have stored the user under "user".
func RequireArea(area Area) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := c.Get("user")
		user, _ := u.(model.User)
		if !ok || !Can(user.Role, area) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not permitted"})
			return
		}
		c.Next()
	}
}
