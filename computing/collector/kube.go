package collector

import (
	"context"
	"time"

	"github.com/gridprotocol/computing-evaluator/common/protocol"
	"golang.org/x/xerrors"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/fields"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// NewKubeClient uses kubeconfig when given, the in-cluster config
// otherwise.
func NewKubeClient(kubeconfig string) (kubernetes.Interface, error) {
	var (
		cfg *rest.Config
		err error
	)
	if kubeconfig != "" {
		cfg, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	} else {
		cfg, err = rest.InClusterConfig()
	}
	if err != nil {
		return nil, xerrors.Errorf("kube config: %w", err)
	}
	cs, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, xerrors.Errorf("kube client: %w", err)
	}
	return cs, nil
}

// KubeSource reports the containers of the pods scheduled on one node.
type KubeSource struct {
	cs        kubernetes.Interface
	namespace string
	node      string
	now       func() time.Time
}

// NewKubeSource lists pods in namespace (all namespaces when empty) and,
// when node is set, only those bound to it.
func NewKubeSource(cs kubernetes.Interface, namespace, node string) *KubeSource {
	return &KubeSource{cs: cs, namespace: namespace, node: node, now: time.Now}
}

func (k *KubeSource) Containers(ctx context.Context) ([]protocol.ContainerStatus, error) {
	opts := metav1.ListOptions{}
	if k.node != "" {
		opts.FieldSelector = fields.OneTermEqualSelector("spec.nodeName", k.node).String()
	}
	pods, err := k.cs.CoreV1().Pods(k.namespace).List(ctx, opts)
	if err != nil {
		return nil, xerrors.Errorf("list pods: %w", err)
	}

	now := k.now().Unix()
	var out []protocol.ContainerStatus
	for _, pod := range pods.Items {
		for _, cs := range pod.Status.ContainerStatuses {
			out = append(out, kubeStatus(cs, now))
		}
	}
	return out, nil
}

func kubeStatus(cs corev1.ContainerStatus, now int64) protocol.ContainerStatus {
	switch {
	case cs.State.Running != nil:
		return protocol.ContainerStatus{
			Status: protocol.ContainerRunning,
			Uptime: uptimeSeconds(now, cs.State.Running.StartedAt.Unix()),
		}
	case cs.State.Waiting != nil && cs.State.Waiting.Reason == "CrashLoopBackOff":
		return protocol.ContainerStatus{Status: StatusRestarting}
	}
	return protocol.ContainerStatus{Status: StatusStopped}
}
