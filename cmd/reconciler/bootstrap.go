package main

import (
	"context"
	"fmt"
	"time"

	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/config_loader"
	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/desired_state"
	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/dev"
	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/dryrun"
	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/events"
	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/executor"
	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/ocm_client"
	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/reconciler"
	"github.com/openshift-hyperfleet/machinepool-reconciler/pkg/logger"
	pkgotel "github.com/openshift-hyperfleet/machinepool-reconciler/pkg/otel"
	"github.com/spf13/pflag"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"gopkg.in/yaml.v3"
)

// commonOptions are the flags shared by run, plan and serve
type commonOptions struct {
	configPath string
	envFile    string
	// offlineResponses serves OCM from a responses file instead of the network
	offlineResponses string
}

func (o *commonOptions) addFlags(flags *pflag.FlagSet) {
	addConfigFlags(flags, &o.configPath)
	addLoggingFlags(flags)
	flags.StringVar(&o.envFile, "env-file", "",
		"Path to .env file for environment variables, e.g. OCM tokens")
	flags.StringVar(&o.offlineResponses, "offline-responses", "",
		"Path to a YAML or JSON file with canned OCM responses; no request leaves the process")
}

// runtime holds what every command needs after startup
type runtime struct {
	log       logger.Logger
	config    *config_loader.ReconcilerConfig
	clients   map[string]ocm_client.Client
	transport *dryrun.Transport
	tp        *sdktrace.TracerProvider
}

// bootstrap loads the env file and the configuration, then creates the
// logger, the tracer provider and one OCM client per environment
func bootstrap(ctx context.Context, flags *pflag.FlagSet, opts commonOptions) (*runtime, error) {
	if opts.envFile != "" {
		envVars, err := dev.LoadEnvFile(opts.envFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
		if err := dev.ApplyEnvVars(envVars); err != nil {
			return nil, fmt.Errorf("failed to apply env vars: %w", err)
		}
	}

	// Bootstrap logger (before config is loaded)
	log, err := logger.NewLogger(buildLoggerConfig(componentName))
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	log.Infof(ctx, "Starting Machine Pool Reconciler version=%s commit=%s built=%s tag=%s", version, commit, buildDate, tag)

	// If configPath is empty, config_loader.Load reads MPR_CONFIG
	config, err := config_loader.Load(opts.configPath, flags)
	if err != nil {
		errCtx := logger.WithStackTraceField(logger.WithErrorField(ctx, err), logger.CaptureStackTrace(1))
		log.Errorf(errCtx, "Failed to load reconciler configuration")
		return nil, fmt.Errorf("failed to load reconciler configuration: %w", err)
	}

	// Recreate logger with component name from config
	log, err = logger.NewLogger(buildLoggerConfig(config.Metadata.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to create logger with reconciler config: %w", err)
	}

	log.Infof(ctx, "Reconciler configuration loaded successfully: name=%s integration=%s environments=%v",
		config.Metadata.Name, config.IntegrationName(), config.EnvironmentNames())
	if config.Spec.DebugConfig {
		logMergedConfig(ctx, log, config)
	}

	tp, err := pkgotel.InitTracer(config.Metadata.Name, version, pkgotel.GetTraceSampleRatio(log, ctx))
	if err != nil {
		errCtx := logger.WithStackTraceField(logger.WithErrorField(ctx, err), logger.CaptureStackTrace(1))
		log.Errorf(errCtx, "Failed to initialize OpenTelemetry")
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	rt := &runtime{log: log, config: config, tp: tp}

	if opts.offlineResponses != "" {
		responses, err := dryrun.LoadDryrunResponses(opts.offlineResponses)
		if err != nil {
			rt.shutdown(ctx)
			return nil, fmt.Errorf("failed to load offline responses: %w", err)
		}
		rt.transport, err = dryrun.NewTransport(responses)
		if err != nil {
			rt.shutdown(ctx)
			return nil, fmt.Errorf("failed to build offline transport: %w", err)
		}
		log.Infof(ctx, "Serving OCM from offline responses %s", opts.offlineResponses)
	}

	rt.clients, err = rt.createClients(ctx)
	if err != nil {
		rt.shutdown(ctx)
		return nil, err
	}
	return rt, nil
}

// createClients creates one OCM client per configured environment
func (rt *runtime) createClients(ctx context.Context) (map[string]ocm_client.Client, error) {
	clients := make(map[string]ocm_client.Client, len(rt.config.Spec.OCM.Environments))
	for i := range rt.config.Spec.OCM.Environments {
		env := &rt.config.Spec.OCM.Environments[i]
		cc, err := env.ClientConfig()
		if err != nil {
			return nil, err
		}
		cc.UserAgent = fmt.Sprintf("%s/%s", componentName, version)
		if rt.transport != nil {
			cc.Transport = rt.transport
		}
		client, err := ocm_client.NewClient(cc, rt.log)
		if err != nil {
			errCtx := logger.WithErrorField(logger.WithOCMEnvironment(ctx, env.Name), err)
			rt.log.Errorf(errCtx, "Failed to create OCM client")
			return nil, fmt.Errorf("failed to create OCM client for environment %s: %w", env.Name, err)
		}
		rt.log.Infof(logger.WithOCMEnvironment(ctx, env.Name), "OCM client configured: url=%s timeout=%s retryAttempts=%d",
			env.URL, env.Timeout, env.RetryAttempts)
		clients[env.Name] = client
	}
	return clients, nil
}

// publisher returns the CloudEvents publisher, or nil when no sink is configured
func (rt *runtime) publisher(ctx context.Context) (executor.Publisher, error) {
	sink := rt.config.Spec.Events.SinkURL
	if sink == "" {
		return nil, nil
	}
	source := rt.config.Spec.Events.Source
	if source == "" {
		source = fmt.Sprintf("%s/%s", componentName, rt.config.Metadata.Name)
	}
	p, err := events.NewHTTPPublisher(sink, source)
	if err != nil {
		return nil, fmt.Errorf("failed to create events publisher: %w", err)
	}
	rt.log.Infof(ctx, "Publishing action events to %s as %s", sink, source)
	return p, nil
}

// newReconciler wires the runtime into a Reconciler. metrics and publisher may be nil.
func (rt *runtime) newReconciler(dryRun bool, metrics reconciler.Metrics, publisher executor.Publisher) (*reconciler.Reconciler, error) {
	selector, err := desired_state.NewSelector(rt.config.Spec.ClusterSelector)
	if err != nil {
		return nil, err
	}
	return reconciler.New(reconciler.Config{
		DesiredStatePath:   rt.config.Spec.DesiredState.Path,
		Integration:        rt.config.IntegrationName(),
		Selector:           selector,
		Clients:            rt.clients,
		DefaultEnvironment: config_loader.DefaultOCMEnvironment,
		FetchConcurrency:   rt.config.Spec.Fetch.Concurrency,
		DryRun:             dryRun,
		Component:          componentName,
		Logger:             rt.log,
		Metrics:            metrics,
		Publisher:          publisher,
	})
}

func (rt *runtime) shutdown(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	pkgotel.Shutdown(shutdownCtx, rt.log, rt.tp)
}

func logMergedConfig(ctx context.Context, log logger.Logger, config *config_loader.ReconcilerConfig) {
	out, err := yaml.Marshal(config)
	if err != nil {
		log.Warnf(logger.WithErrorField(ctx, err), "Failed to render merged configuration")
		return
	}
	log.Infof(ctx, "Merged configuration:\n%s", out)
}
