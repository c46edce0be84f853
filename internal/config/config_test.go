package config

import (
	"reflect"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"MODE", "HTTP_ADDR", "DB_DRIVER", "REDIS_URL", "REQUEST_TIMEOUT_SEC", "CORS_ORIGINS_OFFLINE"} {
		t.Setenv(k, "")
	}
	c := FromEnv()
	if c.Mode != ModeOffline || c.HTTPAddr != ":8080" || c.DBDriver != "sqlite" || c.RedisURL != "" {
		t.Fatalf("defaults = %+v", c)
	}
	if c.RequestTimeout != 30*time.Second || !c.EnableLocalAuth {
		t.Fatalf("defaults = %+v", c)
	}
	if want := []string{"http://localhost:3000", "http://localhost:3010"}; !reflect.DeepEqual(c.CORSOrigins(), want) {
		t.Fatalf("origins = %v", c.CORSOrigins())
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("MODE", "online")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("ENABLE_LOCAL_AUTH", "no")
	t.Setenv("REQUEST_TIMEOUT_SEC", "5")
	t.Setenv("SHUTDOWN_TIMEOUT_SEC", "junk")
	t.Setenv("CORS_ORIGINS_ONLINE", " https://a.example , ,https://b.example")

	c := FromEnv()
	if c.Mode != ModeOnline || c.DBDriver != "postgres" || c.EnableLocalAuth {
		t.Fatalf("config = %+v", c)
	}
	if c.RequestTimeout != 5*time.Second || c.ShutdownTimeout != 15*time.Second {
		t.Fatalf("timeouts = %v %v", c.RequestTimeout, c.ShutdownTimeout)
	}
	if want := []string{"https://a.example", "https://b.example"}; !reflect.DeepEqual(c.CORSOrigins(), want) {
		t.Fatalf("origins = %v", c.CORSOrigins())
	}
}
