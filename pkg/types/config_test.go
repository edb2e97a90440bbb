package types

import (
	"errors"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty api_url returns ErrAPIURLEmpty",
			config:  Config{},
			wantErr: ErrAPIURLEmpty,
		},
		{
			name:    "negative timeout returns ErrTimeoutInvalid",
			config:  Config{APIURL: "http://localhost", Timeout: -time.Second},
			wantErr: ErrTimeoutInvalid,
		},
		{
			name: "unnamed collection returns ErrCollectionName",
			config: Config{APIURL: "http://localhost", Collections: []CollectionConfig{
				{IDKey: "id"},
			}},
			wantErr: ErrCollectionName,
		},
		{
			name: "duplicate collection returns ErrCollectionDuplicate",
			config: Config{APIURL: "http://localhost", Collections: []CollectionConfig{
				{Name: "User"}, {Name: "User"},
			}},
			wantErr: ErrCollectionDuplicate,
		},
		{
			name: "half composite returns ErrCollectionKeys",
			config: Config{APIURL: "http://localhost", Collections: []CollectionConfig{
				{Name: "Membership", LeftKey: "user_id"},
			}},
			wantErr: ErrCollectionKeys,
		},
		{
			name: "valid single and composite collections",
			config: Config{APIURL: "http://localhost", Timeout: 5 * time.Second, Collections: []CollectionConfig{
				{Name: "User", IDKey: "user_id"},
				{Name: "Membership", LeftKey: "user_id", RightKey: "group_id"},
			}},
			wantErr: nil,
		},
		{
			name:    "collection without keys uses defaults",
			config:  Config{APIURL: "http://localhost", Collections: []CollectionConfig{{Name: "Note"}}},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigCollection(t *testing.T) {
	cfg := Config{APIURL: "http://localhost", Collections: []CollectionConfig{
		{Name: "User", IDKey: "user_id"},
	}}

	col, err := cfg.Collection("User")
	if err != nil {
		t.Fatalf("Collection failed: %v", err)
	}
	if col.IDKey != "user_id" {
		t.Errorf("expected id_key user_id, got %q", col.IDKey)
	}

	if _, err := cfg.Collection("Group"); !errors.Is(err, ErrUnknownCollection) {
		t.Errorf("expected ErrUnknownCollection, got %v", err)
	}
}
