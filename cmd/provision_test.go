package cmd

import (
	"testing"
)

func TestValidateProvisionFlagsDefaults(t *testing.T) {
	if err := validateProvisionFlags(provisionCmd, nil); err != nil {
		t.Errorf("default flags should validate, got: %v", err)
	}
}

func TestValidateProvisionFlagsRejectsBadInputs(t *testing.T) {
	tests := []struct {
		flag  string
		value string
	}{
		{"cidr", "not-a-network"},
		{"cidr", "10.8.0.254/24"},
		{"port", "0"},
		{"client", "bad name!"},
	}

	for _, test := range tests {
		t.Run(test.flag+"="+test.value, func(t *testing.T) {
			original := provisionCmd.Flags().Lookup(test.flag).Value.String()
			provisionCmd.Flags().Set(test.flag, test.value)
			defer provisionCmd.Flags().Set(test.flag, original)

			if err := validateProvisionFlags(provisionCmd, nil); err == nil {
				t.Errorf("--%s %s should not validate", test.flag, test.value)
			}
		})
	}
}

func TestRandomName(t *testing.T) {
	if name := randomName(); name == "" {
		t.Error("random run label should not be empty")
	}
}
