package server_test

import (
	"bufio"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"io"
	"math/big"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/http2"

	"github.com/dmitrymomot/httpcore/core/config"
	"github.com/dmitrymomot/httpcore/core/listener"
	"github.com/dmitrymomot/httpcore/core/server"
)

// startServer runs a server on an ephemeral port and returns it with its
// bound address. Cleanup stops the server and waits for Start to return.
func startServer(t *testing.T, h http.Handler, opts ...server.Option) (*server.Server, string) {
	t.Helper()

	srv := server.New("127.0.0.1:0", opts...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Start(ctx, h)
	}()

	require.Eventually(t, func() bool {
		return srv.Addr() != nil
	}, 2*time.Second, 10*time.Millisecond, "server did not bind")

	t.Cleanup(func() {
		_ = srv.Stop()
		cancel()
		<-done
	})

	return srv, srv.Addr().String()
}

// testCertificate builds a self-signed ECDSA certificate for 127.0.0.1.
func testCertificate(t *testing.T) tls.Certificate {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
		DNSNames:     []string{"localhost"},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
}

func testTLSConfig(t *testing.T) *tls.Config {
	t.Helper()

	cfg := server.NewTLSConfig()
	cfg.Certificates = []tls.Certificate{testCertificate(t)}
	return cfg
}

func echoHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "proto=%s path=%s", r.Proto, r.URL.Path)
	})
}

func TestHTTP1RoundTrip(t *testing.T) {
	t.Parallel()

	_, addr := startServer(t, echoHandler())

	resp, err := http.Get("http://" + addr + "/hello")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "proto=HTTP/1.1 path=/hello", string(body))
}

func TestHTTP2OverTLS(t *testing.T) {
	t.Parallel()

	_, addr := startServer(t, echoHandler(), server.WithTLS(testTLSConfig(t)))

	client := &http.Client{
		Transport: &http2.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	defer client.CloseIdleConnections()

	resp, err := client.Get("https://" + addr + "/h2")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "proto=HTTP/2.0 path=/h2", string(body))
}

func TestHTTP1OverTLSWithoutALPN(t *testing.T) {
	t.Parallel()

	_, addr := startServer(t, echoHandler(), server.WithTLS(testTLSConfig(t)))

	// A transport that never offers h2 must be served as HTTP/1.1.
	client := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	defer client.CloseIdleConnections()

	resp, err := client.Get("https://" + addr + "/h1")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "proto=HTTP/1.1 path=/h1", string(body))
}

func TestRestrictedALPNList(t *testing.T) {
	t.Parallel()

	cfg := server.NewTLSConfig(server.WithTLSNextProtos("http/1.1"))
	cfg.Certificates = []tls.Certificate{testCertificate(t)}

	_, addr := startServer(t, echoHandler(), server.WithTLS(cfg))

	// An h2-only client cannot negotiate against the restricted list.
	h2client := &http.Client{
		Transport: &http2.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	defer h2client.CloseIdleConnections()

	_, err := h2client.Get("https://" + addr + "/h2")
	require.Error(t, err)

	client := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	defer client.CloseIdleConnections()

	resp, err := client.Get("https://" + addr + "/plain")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "proto=HTTP/1.1 path=/plain", string(body))
}

func TestHTTP2PriorKnowledge(t *testing.T) {
	t.Parallel()

	_, addr := startServer(t, echoHandler())

	client := &http.Client{
		Transport: &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, network, addr)
			},
		},
	}
	defer client.CloseIdleConnections()

	resp, err := client.Get("http://" + addr + "/prior")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "proto=HTTP/2.0 path=/prior", string(body))
}

func TestHTTP2Disabled(t *testing.T) {
	t.Parallel()

	_, addr := startServer(t, echoHandler(), server.WithoutHTTP2())

	resp, err := http.Get("http://" + addr + "/only1")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "proto=HTTP/1.1 path=/only1", string(body))

	// Prior-knowledge HTTP/2 has no stack to land on and must fail.
	client := &http.Client{
		Transport: &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, network, addr)
			},
		},
	}
	defer client.CloseIdleConnections()

	_, err = client.Get("http://" + addr + "/prior")
	require.Error(t, err)
}

func TestConcurrentStreams(t *testing.T) {
	t.Parallel()

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			time.Sleep(200 * time.Millisecond)
		}
		fmt.Fprint(w, r.URL.Path)
	})

	_, addr := startServer(t, h, server.WithTLS(testTLSConfig(t)))

	client := &http.Client{
		Transport: &http2.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	defer client.CloseIdleConnections()

	var (
		mu       sync.Mutex
		slowDone time.Time
		fastDone time.Time
	)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		resp, err := client.Get("https://" + addr + "/slow")
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
		mu.Lock()
		slowDone = time.Now()
		mu.Unlock()
	}()

	time.Sleep(50 * time.Millisecond)

	go func() {
		defer wg.Done()
		resp, err := client.Get("https://" + addr + "/fast")
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
		mu.Lock()
		fastDone = time.Now()
		mu.Unlock()
	}()

	wg.Wait()

	// The fast stream must not queue behind the slow one.
	assert.True(t, fastDone.Before(slowDone),
		"fast stream finished at %v, slow at %v", fastDone, slowDone)
}

func TestPipelinedResponsesStayOrdered(t *testing.T) {
	t.Parallel()

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			time.Sleep(100 * time.Millisecond)
		}
		fmt.Fprint(w, r.URL.Path)
	})

	_, addr := startServer(t, h)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	// Two back-to-back requests on one connection. The slow one is first;
	// its response must still come back first.
	_, err = conn.Write([]byte(
		"GET /slow HTTP/1.1\r\nHost: t\r\n\r\n" +
			"GET /fast HTTP/1.1\r\nHost: t\r\n\r\n"))
	require.NoError(t, err)

	br := bufio.NewReader(conn)
	for _, want := range []string{"/slow", "/fast"} {
		resp, err := http.ReadResponse(br, nil)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
		assert.Equal(t, want, string(body))
	}
}

func TestHandlerPanicIsolation(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		peers []string
	)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		peers = append(peers, r.RemoteAddr)
		mu.Unlock()

		if r.URL.Path == "/panic" {
			panic("boom")
		}
		fmt.Fprint(w, "ok")
	})

	_, addr := startServer(t, h)

	client := &http.Client{Transport: &http.Transport{}}
	defer client.CloseIdleConnections()

	resp, err := client.Get("http://" + addr + "/panic")
	require.NoError(t, err)
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	resp, err = client.Get("http://" + addr + "/ok")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	// The keep-alive connection survived the fault.
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, peers, 2)
	assert.Equal(t, peers[0], peers[1])
}

func TestTLSHandshakeFailureIsolation(t *testing.T) {
	t.Parallel()

	srv, addr := startServer(t, echoHandler(), server.WithTLS(testTLSConfig(t)))

	// Plaintext against a TLS listener fails the handshake.
	_, err := http.Get("http://" + addr + "/")
	require.Error(t, err)

	assert.Equal(t, server.StateRunning, srv.State())

	client := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	defer client.CloseIdleConnections()

	resp, err := client.Get("https://" + addr + "/after")
	require.NoError(t, err)
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGracefulDrain(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	release := make(chan struct{})

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		fmt.Fprint(w, "drained")
	})

	srv, addr := startServer(t, h, server.WithShutdownTimeout(5*time.Second))

	type result struct {
		body string
		err  error
	}
	resCh := make(chan result, 1)

	go func() {
		resp, err := http.Get("http://" + addr + "/")
		if err != nil {
			resCh <- result{err: err}
			return
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		resCh <- result{body: string(body), err: err}
	}()

	<-entered

	stopDone := make(chan error, 1)
	go func() {
		stopDone <- srv.Stop()
	}()

	require.Eventually(t, func() bool {
		return srv.State() == server.StateDraining
	}, time.Second, 10*time.Millisecond)

	// No new connection is accepted once draining begins.
	conn, dialErr := net.DialTimeout("tcp", addr, 100*time.Millisecond)
	if dialErr == nil {
		conn.Close()
	}
	assert.Error(t, dialErr)

	close(release)

	require.NoError(t, <-stopDone)
	assert.Equal(t, server.StateStopped, srv.State())

	// The in-flight response was delivered in full before shutdown completed.
	res := <-resCh
	require.NoError(t, res.err)
	assert.Equal(t, "drained", res.body)
}

func TestDrainTimeoutForcesAbort(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-r.Context().Done()
	})

	srv, addr := startServer(t, h, server.WithShutdownTimeout(100*time.Millisecond))

	errCh := make(chan error, 1)
	go func() {
		resp, err := http.Get("http://" + addr + "/")
		if err == nil {
			resp.Body.Close()
		}
		errCh <- err
	}()

	<-entered

	start := time.Now()
	require.NoError(t, srv.Stop())
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, server.StateStopped, srv.State())

	// The aborted connection never produced a usable response.
	select {
	case err := <-errCh:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("client never observed the aborted connection")
	}
}

func TestStopIdempotent(t *testing.T) {
	t.Parallel()

	srv, _ := startServer(t, echoHandler())

	require.NoError(t, srv.Stop())
	assert.Equal(t, server.StateStopped, srv.State())
	require.NoError(t, srv.Stop())
	assert.Equal(t, server.StateStopped, srv.State())
}

func TestStopBeforeStart(t *testing.T) {
	t.Parallel()

	srv := server.New("127.0.0.1:0")
	require.NoError(t, srv.Stop())
	assert.Equal(t, server.StateIdle, srv.State())
}

func TestStartErrors(t *testing.T) {
	t.Parallel()

	t.Run("nil handler", func(t *testing.T) {
		t.Parallel()

		srv := server.New("127.0.0.1:0")
		err := srv.Start(context.Background(), nil)
		require.ErrorIs(t, err, server.ErrMissingHandler)
	})

	t.Run("double start", func(t *testing.T) {
		t.Parallel()

		srv, _ := startServer(t, echoHandler())
		err := srv.Start(context.Background(), echoHandler())
		require.ErrorIs(t, err, server.ErrServerAlreadyRunning)
	})

	t.Run("start after stop", func(t *testing.T) {
		t.Parallel()

		srv, _ := startServer(t, echoHandler())
		require.NoError(t, srv.Stop())

		err := srv.Start(context.Background(), echoHandler())
		require.ErrorIs(t, err, server.ErrServerStopped)
	})

	t.Run("bind conflict", func(t *testing.T) {
		t.Parallel()

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer ln.Close()

		srv := server.New(ln.Addr().String(), server.WithReuseAddress(false))
		err = srv.Start(context.Background(), echoHandler())
		require.ErrorIs(t, err, listener.ErrBindFailed)
		assert.Equal(t, server.StateStopped, srv.State())
	})
}

func TestContextCancellation(t *testing.T) {
	t.Parallel()

	srv := server.New("127.0.0.1:0")

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx, echoHandler())
	}()

	require.Eventually(t, func() bool {
		return srv.Addr() != nil
	}, 2*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after context cancellation")
	}

	require.NoError(t, srv.Stop())
}

func TestRunStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv := server.New("127.0.0.1:0")

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(ctx, echoHandler())()
	}()

	require.Eventually(t, func() bool {
		return srv.Addr() != nil
	}, 2*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
	assert.Equal(t, server.StateStopped, srv.State())
}

func TestConfigFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_ADDR", "127.0.0.1:9999")
	t.Setenv("SERVER_REUSE_PORT", "true")
	t.Setenv("SERVER_SHUTDOWN_TIMEOUT", "45s")
	t.Setenv("SERVER_MAX_HEADER_BYTES", "4096")

	var cfg server.Config
	require.NoError(t, config.Load(&cfg))

	assert.Equal(t, "127.0.0.1:9999", cfg.Addr)
	assert.True(t, cfg.ReusePort)
	assert.Equal(t, 45*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 4096, cfg.MaxHeaderBytes)

	// Untouched fields keep their tag defaults.
	assert.Equal(t, 15*time.Second, cfg.ReadTimeout)
	assert.True(t, cfg.ReuseAddress)
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	t.Run("missing address", func(t *testing.T) {
		t.Parallel()

		_, err := server.NewFromConfig(server.Config{})
		require.ErrorIs(t, err, server.ErrMissingAddress)
	})

	t.Run("defaults produce a working server", func(t *testing.T) {
		t.Parallel()

		cfg := server.DefaultConfig()
		cfg.Addr = "127.0.0.1:0"

		srv, err := server.NewFromConfig(cfg)
		require.NoError(t, err)
		assert.Equal(t, server.StateIdle, srv.State())
	})

	t.Run("bad certificate files", func(t *testing.T) {
		t.Parallel()

		cfg := server.DefaultConfig()
		cfg.TLSCertFile = "/nonexistent/cert.pem"
		cfg.TLSKeyFile = "/nonexistent/key.pem"

		_, err := server.NewFromConfig(cfg)
		require.Error(t, err)
	})
}
