package kafka

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"strings"

	"github.com/IBM/sarama"

	"github.com/yourname/commerce-datagen/internal/config"
)

// buildSaramaConfig constructs a producer config honoring TLS/SSL, SASL PLAIN and GSSAPI.
func buildSaramaConfig(cfg *config.KafkaConfig) (*sarama.Config, error) {
	sc := sarama.NewConfig()
	sc.Version = sarama.V3_5_0_0
	if cfg.ClientID != "" {
		sc.ClientID = cfg.ClientID
	}
	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Idempotent = false
	sc.Producer.Partitioner = sarama.NewHashPartitioner

	proto := strings.ToUpper(strings.TrimSpace(cfg.SecurityProtocol))
	switch proto {
	case "", "PLAINTEXT":
		// no TLS, no SASL
	case "SSL":
		if err := applyTLS(sc, cfg); err != nil {
			return nil, err
		}
	case "SASL_PLAINTEXT", "SASL_SSL":
		sc.Net.SASL.Enable = true
		mech := strings.ToUpper(strings.TrimSpace(cfg.SASLMechanism))
		switch mech {
		case "", "PLAIN":
			sc.Net.SASL.Mechanism = sarama.SASLTypePlaintext
			sc.Net.SASL.User = cfg.SASLUsername
			sc.Net.SASL.Password = cfg.SASLPassword
		case "GSSAPI", "KERBEROS":
			sc.Net.SASL.Mechanism = sarama.SASLTypeGSSAPI
			sc.Net.SASL.GSSAPI = sarama.GSSAPIConfig{
				AuthType:           gssapiAuthType(cfg.GSSAPIAuthType),
				KeyTabPath:         cfg.GSSAPIKeytabPath,
				KerberosConfigPath: cfg.GSSAPIKerberosConfigPath,
				ServiceName:        defaultString(cfg.GSSAPIServiceName, "kafka"),
				Username:           cfg.GSSAPIUsername,
				Password:           cfg.GSSAPIPassword,
				Realm:              cfg.GSSAPIRealm,
			}
		default:
			return nil, fmt.Errorf("unsupported SASL mechanism: %s", cfg.SASLMechanism)
		}
		if proto == "SASL_SSL" {
			if err := applyTLS(sc, cfg); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("unsupported securityProtocol: %s", cfg.SecurityProtocol)
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("sarama config: %w", err)
	}
	return sc, nil
}

func applyTLS(sc *sarama.Config, cfg *config.KafkaConfig) error {
	sc.Net.TLS.Enable = true
	t := &tls.Config{InsecureSkipVerify: cfg.TLSInsecureSkipVerify}
	if cfg.TLSServerName != "" {
		t.ServerName = cfg.TLSServerName
	}
	if strings.TrimSpace(cfg.TLSCA) != "" {
		pool := x509.NewCertPool()
		if ok := pool.AppendCertsFromPEM([]byte(cfg.TLSCA)); !ok {
			return fmt.Errorf("invalid tlsCA")
		}
		t.RootCAs = pool
	}
	if strings.TrimSpace(cfg.TLSCert) != "" && strings.TrimSpace(cfg.TLSKey) != "" {
		cert, err := tls.X509KeyPair([]byte(cfg.TLSCert), []byte(cfg.TLSKey))
		if err != nil {
			return fmt.Errorf("invalid client cert/key: %w", err)
		}
		t.Certificates = []tls.Certificate{cert}
	}
	sc.Net.TLS.Config = t
	return nil
}

func gssapiAuthType(s string) int {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "KEYTAB":
		return sarama.KRB5_KEYTAB_AUTH
	default:
		return sarama.KRB5_USER_AUTH
	}
}

func defaultString(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
