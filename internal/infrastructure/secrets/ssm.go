package secrets

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"NewsFlow/internal/ports"
)

// SSMStore resolves secrets from the SSM parameter store with decryption.
// Values are fetched once at startup and never logged.
type SSMStore struct {
	client *ssm.Client
}

var _ ports.SecretStore = (*SSMStore)(nil)

// NewSSMStore wires an SSM client.
func NewSSMStore(client *ssm.Client) *SSMStore {
	return &SSMStore{client: client}
}

// Get returns the decrypted value of the named parameter.
func (s *SSMStore) Get(ctx context.Context, name string) (string, error) {
	out, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("get parameter %s: %w", name, err)
	}
	if out.Parameter == nil {
		return "", fmt.Errorf("parameter %s has no value", name)
	}
	return aws.ToString(out.Parameter.Value), nil
}

// Resolve fetches the named parameter, falling back to the plain config
// value when no parameter name is configured.
func Resolve(ctx context.Context, store ports.SecretStore, paramName, fallback string) (string, error) {
	if paramName == "" || store == nil {
		return fallback, nil
	}
	return store.Get(ctx, paramName)
}
