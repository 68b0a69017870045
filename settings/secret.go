package settings

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/jinzhu/copier"
)

const defaultRegion = "us-east-1"

// LoadSecret fetches a JSON settings document from AWS Secrets Manager and
// overlays it on the defaults, for runs configured out of a shared account
// rather than a local file. The region comes from AWS_REGION when set.
func LoadSecret(secretName string) (*Settings, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = defaultRegion
	}
	svc := secretsmanager.New(session.Must(session.NewSession()), aws.NewConfig().WithRegion(region))
	input := &secretsmanager.GetSecretValueInput{
		SecretId:     aws.String(secretName),
		VersionStage: aws.String("AWSCURRENT"),
	}
	result, err := svc.GetSecretValue(input)
	if err != nil {
		return nil, fmt.Errorf("load secret %v: %w", secretName, err)
	}

	var raw []byte
	if result.SecretString != nil {
		raw = []byte(*result.SecretString)
	} else {
		raw = make([]byte, base64.StdEncoding.DecodedLen(len(result.SecretBinary)))
		n, err := base64.StdEncoding.Decode(raw, result.SecretBinary)
		if err != nil {
			return nil, fmt.Errorf("load secret %v: %w", secretName, err)
		}
		raw = raw[:n]
	}

	var loaded Settings
	if err := json.Unmarshal(raw, &loaded); err != nil {
		return nil, fmt.Errorf("load secret %v: %w", secretName, err)
	}
	merged := Default()
	if err := copier.CopyWithOption(&merged, &loaded, copier.Option{IgnoreEmpty: true}); err != nil {
		return nil, fmt.Errorf("load secret %v: %w", secretName, err)
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}
