package grantcore

import (
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	v1 "github.com/emrgen/grantcore/apis/v1"
	"github.com/emrgen/grantcore/internal/server"
)

type Client interface {
	io.Closer
	v1.CoreClient
}

type client struct {
	conn *grpc.ClientConn
	v1.CoreClient
}

// NewClient connects to a grantcore server at addr, e.g. "localhost:4020".
func NewClient(addr string) (Client, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(server.UnaryRequestTimeInterceptor()),
	)
	if err != nil {
		return nil, err
	}
	return &client{
		conn:       conn,
		CoreClient: v1.NewCoreClient(conn),
	}, nil
}

func (c *client) Close() error {
	return c.conn.Close()
}
